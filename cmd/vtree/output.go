package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/vango-dev/vtree/pkg/vdom"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	gray   = color.New(color.FgHiBlack).SprintFunc()
)

// opColor picks the color of a patch line by what it does to the tree.
func opColor(op vdom.PatchOp) func(a ...any) string {
	switch op {
	case vdom.PatchAppendChildren:
		return green
	case vdom.PatchRemoveTrailing, vdom.PatchRemoveAttr:
		return red
	case vdom.PatchReplaceNode:
		return cyan
	default:
		return yellow
	}
}

// printPatches writes one line per patch.
func printPatches(w io.Writer, patches []vdom.Patch) {
	if len(patches) == 0 {
		fmt.Fprintln(w, gray("no changes"))
		return
	}
	for _, p := range patches {
		fmt.Fprintln(w, opColor(p.Op)(p.String()))
	}
}

type patchesJSON struct {
	Patches []vdom.Patch `json:"patches"`
}

// printPatchesJSON writes patches in the same shape the server's /diff
// route returns.
func printPatchesJSON(w io.Writer, patches []vdom.Patch) error {
	if patches == nil {
		patches = []vdom.Patch{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(patchesJSON{Patches: patches})
}

// success prints a success message.
func success(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", green("✓"), fmt.Sprintf(format, args...))
}
