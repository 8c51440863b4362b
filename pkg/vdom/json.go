package vdom

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrInvalidJSONNode is returned when a JSON object is neither an element nor a text node.
var ErrInvalidJSONNode = errors.New("vdom: JSON node needs exactly one of tag or text")

// jsonNode is the JSON form of a VNode:
//
//	{"tag":"div","attrs":{"class":"a"},"children":[{"text":"hi"}]}
type jsonNode struct {
	Tag      string   `json:"tag,omitempty"`
	Attrs    Attrs    `json:"attrs,omitempty"`
	Children []*VNode `json:"children,omitempty"`
	Text     *string  `json:"text,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v *VNode) MarshalJSON() ([]byte, error) {
	if v.Kind == KindText {
		text := v.Text
		return json.Marshal(jsonNode{Text: &text})
	}
	return json.Marshal(jsonNode{Tag: v.Tag, Attrs: v.Attrs, Children: v.Children})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *VNode) UnmarshalJSON(data []byte) error {
	var jn jsonNode
	if err := json.Unmarshal(data, &jn); err != nil {
		return err
	}
	if (jn.Text != nil) == (jn.Tag != "") {
		return ErrInvalidJSONNode
	}
	if jn.Text != nil {
		*v = VNode{Kind: KindText, Text: *jn.Text}
		return nil
	}
	for i, c := range jn.Children {
		if c == nil {
			return fmt.Errorf("vdom: null child %d of <%s>", i, jn.Tag)
		}
	}
	*v = VNode{Kind: KindElement, Tag: jn.Tag, Attrs: jn.Attrs, Children: jn.Children}
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (op PatchOp) MarshalText() ([]byte, error) {
	return []byte(op.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (op *PatchOp) UnmarshalText(text []byte) error {
	for candidate := PatchSetText; candidate <= PatchReplaceNode; candidate++ {
		if candidate.String() == string(text) {
			*op = candidate
			return nil
		}
	}
	return fmt.Errorf("vdom: unknown patch op %q", text)
}

// jsonPatch is the JSON form of a Patch.
type jsonPatch struct {
	Op    PatchOp  `json:"op"`
	Path  Path     `json:"path"`
	Key   string   `json:"key,omitempty"`
	Value *string  `json:"value,omitempty"`
	Node  *VNode   `json:"node,omitempty"`
	Nodes []*VNode `json:"nodes,omitempty"`
	Count int      `json:"count,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (p Patch) MarshalJSON() ([]byte, error) {
	jp := jsonPatch{
		Op:    p.Op,
		Path:  p.Path,
		Key:   p.Key,
		Node:  p.Node,
		Nodes: p.Nodes,
		Count: p.Count,
	}
	if jp.Path == nil {
		jp.Path = Path{}
	}
	if p.Op == PatchSetText || p.Op == PatchSetAttr {
		value := p.Value
		jp.Value = &value
	}
	return json.Marshal(jp)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var jp jsonPatch
	if err := json.Unmarshal(data, &jp); err != nil {
		return err
	}
	*p = Patch{
		Op:    jp.Op,
		Path:  jp.Path,
		Key:   jp.Key,
		Node:  jp.Node,
		Nodes: jp.Nodes,
		Count: jp.Count,
	}
	if p.Path == nil {
		p.Path = Path{}
	}
	if jp.Value != nil {
		p.Value = *jp.Value
	}
	return nil
}
