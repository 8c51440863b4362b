package reconcile

import (
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Apply replays patches against the rendering mounted under root, strictly
// in order. It returns the number of patches applied before the first
// failure. Patches from one Diff call must be applied together and
// unreordered; a partial list leaves later paths meaningless.
func Apply(r Renderer, root Handle, patches []vdom.Patch) (int, error) {
	for i, p := range patches {
		h, err := r.Resolve(root, p.Path)
		if err != nil {
			return i, patchError(ErrPathResolution, StageResolve, i, p, err)
		}
		if err := applyOne(r, h, p); err != nil {
			kind := ErrRenderMutation
			if p.Op == vdom.PatchReplaceNode || p.Op == vdom.PatchAppendChildren {
				kind = ErrRenderCreate
			}
			return i, patchError(kind, StageApply, i, p, err)
		}
	}
	return len(patches), nil
}

func applyOne(r Renderer, h Handle, p vdom.Patch) error {
	switch p.Op {
	case vdom.PatchSetText:
		return r.SetText(h, p.Value)
	case vdom.PatchSetAttr:
		return r.SetAttribute(h, p.Key, p.Value)
	case vdom.PatchRemoveAttr:
		return r.RemoveAttribute(h, p.Key)
	case vdom.PatchAppendChildren:
		return r.AppendChildren(h, p.Nodes)
	case vdom.PatchRemoveTrailing:
		if p.Count < 1 {
			return fmt.Errorf("%w: trailing count %d", ErrInvalidPatch, p.Count)
		}
		return r.RemoveTrailingChildren(h, p.Count)
	case vdom.PatchReplaceNode:
		_, err := r.Replace(h, p.Node)
		return err
	default:
		return fmt.Errorf("%w: op %s", ErrInvalidPatch, p.Op)
	}
}
