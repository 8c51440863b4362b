package reconcile

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Error kinds. Every failure returned by Update or Apply matches exactly one
// of these with errors.Is.
var (
	// ErrRenderCreate is returned when the Renderer fails to materialize a
	// node, during mount or while applying ReplaceNode/AppendChildren.
	// A failed mount-time Attach is a mutation, not a create.
	ErrRenderCreate = errors.New("reconcile: render create failed")

	// ErrPathResolution is returned when a patch path does not resolve
	// against the live rendering. It indicates the rendering and the stored
	// tree have diverged.
	ErrPathResolution = errors.New("reconcile: path resolution failed")

	// ErrRenderMutation is returned for any other Renderer failure.
	ErrRenderMutation = errors.New("reconcile: render mutation failed")
)

// Usage errors.
var (
	// ErrNilTree is returned when Update is called with a nil tree.
	ErrNilTree = errors.New("reconcile: nil tree")

	// ErrConcurrentUpdate is returned when Update overlaps another Update on
	// the same Reconciler.
	ErrConcurrentUpdate = errors.New("reconcile: concurrent update")

	// ErrInvalidPatch is wrapped when a patch cannot be applied as written,
	// such as an unknown op or a non-positive trailing count.
	ErrInvalidPatch = errors.New("reconcile: invalid patch")
)

// Stage names the step of a cycle that failed.
type Stage string

const (
	StageCreate  Stage = "create"
	StageAttach  Stage = "attach"
	StageResolve Stage = "resolve"
	StageApply   Stage = "apply"
)

// Error describes a failed reconciliation step.
type Error struct {
	Kind  error        // ErrRenderCreate, ErrPathResolution or ErrRenderMutation
	Stage Stage        // Step that failed
	Op    vdom.PatchOp // Patch being applied; zero on the mount path
	Index int          // Patch index; -1 on the mount path
	Path  vdom.Path    // Patch target; nil on the mount path
	Err   error        // Underlying renderer error
}

// Error returns the error message with patch context.
func (e *Error) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%v: %s: %v", e.Kind, e.Stage, e.Err)
	}
	return fmt.Sprintf("%v: %s patch %d (%s %s): %v", e.Kind, e.Stage, e.Index, e.Op, e.Path, e.Err)
}

// Unwrap exposes both the kind and the underlying error to errors.Is/As.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func mountError(kind error, stage Stage, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Index: -1, Err: err}
}

func patchError(kind error, stage Stage, index int, p vdom.Patch, err error) *Error {
	return &Error{Kind: kind, Stage: stage, Op: p.Op, Index: index, Path: p.Path, Err: err}
}

// KindName returns a short label for the kind of err, for metrics and logs.
func KindName(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRenderCreate):
		return "create"
	case errors.Is(err, ErrPathResolution):
		return "path"
	case errors.Is(err, ErrRenderMutation):
		return "mutation"
	case errors.Is(err, ErrConcurrentUpdate):
		return "concurrent"
	case errors.Is(err, ErrNilTree):
		return "nil_tree"
	default:
		return "other"
	}
}
