package vdom

import (
	"fmt"
	"strconv"
)

// PatchOp is the type of patch operation.
type PatchOp uint8

const (
	PatchSetText        PatchOp = 0x01 // Update text content
	PatchSetAttr        PatchOp = 0x02 // Set/update attribute
	PatchRemoveAttr     PatchOp = 0x03 // Remove attribute
	PatchAppendChildren PatchOp = 0x04 // Append nodes after the last child
	PatchRemoveTrailing PatchOp = 0x05 // Drop the last Count children
	PatchReplaceNode    PatchOp = 0x06 // Replace node entirely
)

// String returns the string representation of the PatchOp.
func (op PatchOp) String() string {
	switch op {
	case PatchSetText:
		return "SetText"
	case PatchSetAttr:
		return "SetAttr"
	case PatchRemoveAttr:
		return "RemoveAttr"
	case PatchAppendChildren:
		return "AppendChildren"
	case PatchRemoveTrailing:
		return "RemoveTrailing"
	case PatchReplaceNode:
		return "ReplaceNode"
	default:
		return "Unknown"
	}
}

// Patch represents a single edit applied to the node at Path.
type Patch struct {
	Op    PatchOp  // Operation type
	Path  Path     // Target node, relative to the root
	Key   string   // Attribute key (for SetAttr/RemoveAttr)
	Value string   // Attribute value or text content
	Node  *VNode   // For ReplaceNode
	Nodes []*VNode // For AppendChildren
	Count int      // For RemoveTrailing
}

// ReplaceNode creates a patch substituting the subtree at path.
func ReplaceNode(path Path, node *VNode) Patch {
	return Patch{Op: PatchReplaceNode, Path: path, Node: node}
}

// SetAttr creates a patch setting an attribute.
func SetAttr(path Path, key, value string) Patch {
	return Patch{Op: PatchSetAttr, Path: path, Key: key, Value: value}
}

// RemoveAttr creates a patch removing an attribute.
func RemoveAttr(path Path, key string) Patch {
	return Patch{Op: PatchRemoveAttr, Path: path, Key: key}
}

// SetText creates a patch replacing text content.
func SetText(path Path, content string) Patch {
	return Patch{Op: PatchSetText, Path: path, Value: content}
}

// AppendChildren creates a patch appending nodes to the children at path.
func AppendChildren(path Path, nodes []*VNode) Patch {
	return Patch{Op: PatchAppendChildren, Path: path, Nodes: nodes}
}

// RemoveTrailing creates a patch dropping the last count children at path.
func RemoveTrailing(path Path, count int) Patch {
	return Patch{Op: PatchRemoveTrailing, Path: path, Count: count}
}

// String returns a one-line description, e.g. `SetAttr /0 class="b"`.
func (p Patch) String() string {
	switch p.Op {
	case PatchSetText:
		return fmt.Sprintf("%s %s %s", p.Op, p.Path, strconv.Quote(p.Value))
	case PatchSetAttr:
		return fmt.Sprintf("%s %s %s=%s", p.Op, p.Path, p.Key, strconv.Quote(p.Value))
	case PatchRemoveAttr:
		return fmt.Sprintf("%s %s %s", p.Op, p.Path, p.Key)
	case PatchAppendChildren:
		return fmt.Sprintf("%s %s %v", p.Op, p.Path, p.Nodes)
	case PatchRemoveTrailing:
		return fmt.Sprintf("%s %s %d", p.Op, p.Path, p.Count)
	case PatchReplaceNode:
		return fmt.Sprintf("%s %s %v", p.Op, p.Path, p.Node)
	default:
		return fmt.Sprintf("%s %s", p.Op, p.Path)
	}
}
