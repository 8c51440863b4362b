package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// ErrUnknownOp is returned when a patch carries an op code outside the
// known set.
var ErrUnknownOp = errors.New("protocol: unknown patch op")

// TreeFrame is a tree snapshot sent to a host for reconciliation.
type TreeFrame struct {
	Seq  uint64
	Root *vdom.VNode
}

// PatchesFrame is the patch list a host applied for one TreeFrame.
type PatchesFrame struct {
	Seq     uint64
	Patches []vdom.Patch
}

// EncodeTreeFrame encodes tf as a payload.
func EncodeTreeFrame(tf *TreeFrame) ([]byte, error) {
	e := NewEncoder()
	e.WriteUvarint(tf.Seq)
	if err := EncodeVNode(e, tf.Root); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// DecodeTreeFrame decodes a TreeFrame payload.
func DecodeTreeFrame(data []byte) (*TreeFrame, error) {
	d := NewDecoder(data)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	root, err := DecodeVNode(d)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return &TreeFrame{Seq: seq, Root: root}, nil
}

// EncodePatches encodes pf as a payload.
func EncodePatches(pf *PatchesFrame) ([]byte, error) {
	e := NewEncoderWithCap(64 + len(pf.Patches)*16)
	e.WriteUvarint(pf.Seq)
	e.WriteUvarint(uint64(len(pf.Patches)))
	for i := range pf.Patches {
		if err := EncodePatch(e, &pf.Patches[i]); err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
	}
	return e.Bytes(), nil
}

// DecodePatches decodes a PatchesFrame payload.
func DecodePatches(data []byte) (*PatchesFrame, error) {
	d := NewDecoder(data)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	count, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	pf := &PatchesFrame{Seq: seq, Patches: make([]vdom.Patch, 0, count)}
	for i := 0; i < count; i++ {
		p, err := DecodePatch(d)
		if err != nil {
			return nil, fmt.Errorf("patch %d: %w", i, err)
		}
		pf.Patches = append(pf.Patches, p)
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return pf, nil
}

// EncodePath appends a path as a count followed by uvarint indices.
func EncodePath(e *Encoder, path vdom.Path) {
	e.WriteUvarint(uint64(len(path)))
	for _, i := range path {
		e.WriteUvarint(uint64(i))
	}
}

// DecodePath reads a path written by EncodePath.
func DecodePath(d *Decoder) (vdom.Path, error) {
	n, err := d.ReadCollectionCount()
	if err != nil {
		return nil, err
	}
	if n > MaxPathLength {
		return nil, ErrMaxDepthExceeded
	}
	path := make(vdom.Path, n)
	for i := range path {
		v, err := d.ReadUvarint()
		if err != nil {
			return nil, err
		}
		if v > MaxCollectionCount {
			return nil, ErrCollectionTooLarge
		}
		path[i] = int(v)
	}
	return path, nil
}

// EncodePatch appends a single patch to e.
func EncodePatch(e *Encoder, p *vdom.Patch) error {
	e.WriteByte(byte(p.Op))
	EncodePath(e, p.Path)

	switch p.Op {
	case vdom.PatchSetText:
		e.WriteString(p.Value)
	case vdom.PatchSetAttr:
		e.WriteString(p.Key)
		e.WriteString(p.Value)
	case vdom.PatchRemoveAttr:
		e.WriteString(p.Key)
	case vdom.PatchAppendChildren:
		e.WriteUvarint(uint64(len(p.Nodes)))
		for _, n := range p.Nodes {
			if err := EncodeVNode(e, n); err != nil {
				return err
			}
		}
	case vdom.PatchRemoveTrailing:
		if p.Count < 0 {
			return fmt.Errorf("protocol: negative trailing count %d", p.Count)
		}
		e.WriteUvarint(uint64(p.Count))
	case vdom.PatchReplaceNode:
		return EncodeVNode(e, p.Node)
	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnknownOp, byte(p.Op))
	}
	return nil
}

// DecodePatch reads a single patch from d.
func DecodePatch(d *Decoder) (vdom.Patch, error) {
	var p vdom.Patch

	op, err := d.ReadByte()
	if err != nil {
		return p, err
	}
	p.Op = vdom.PatchOp(op)

	if p.Path, err = DecodePath(d); err != nil {
		return p, err
	}

	switch p.Op {
	case vdom.PatchSetText:
		p.Value, err = d.ReadString()
	case vdom.PatchSetAttr:
		if p.Key, err = d.ReadString(); err == nil {
			p.Value, err = d.ReadString()
		}
	case vdom.PatchRemoveAttr:
		p.Key, err = d.ReadString()
	case vdom.PatchAppendChildren:
		var count int
		if count, err = d.ReadCollectionCount(); err != nil {
			return p, err
		}
		p.Nodes = make([]*vdom.VNode, count)
		for i := range p.Nodes {
			if p.Nodes[i], err = DecodeVNode(d); err != nil {
				return p, err
			}
		}
	case vdom.PatchRemoveTrailing:
		var count uint64
		if count, err = d.ReadUvarint(); err != nil {
			return p, err
		}
		if count > MaxCollectionCount {
			return p, ErrCollectionTooLarge
		}
		p.Count = int(count)
	case vdom.PatchReplaceNode:
		p.Node, err = DecodeVNode(d)
	default:
		return p, fmt.Errorf("%w: 0x%02x", ErrUnknownOp, op)
	}
	return p, err
}
