package protocol

import (
	"errors"
	"fmt"

	"github.com/vango-dev/vtree/pkg/vdom"
)

// Tree errors.
var (
	ErrNilNode     = errors.New("protocol: nil node")
	ErrUnknownKind = errors.New("protocol: unknown node kind")
)

// EncodeVNode appends node to e. Children that are nil are rejected by
// returning ErrNilNode; nothing useful can be done with a partial tree.
func EncodeVNode(e *Encoder, node *vdom.VNode) error {
	if node == nil {
		return ErrNilNode
	}

	e.WriteByte(byte(node.Kind))

	switch node.Kind {
	case vdom.KindElement:
		e.WriteString(node.Tag)

		keys := node.Attrs.Keys()
		e.WriteUvarint(uint64(len(keys)))
		for _, k := range keys {
			e.WriteString(k)
			e.WriteString(node.Attrs[k])
		}

		e.WriteUvarint(uint64(len(node.Children)))
		for _, child := range node.Children {
			if err := EncodeVNode(e, child); err != nil {
				return err
			}
		}

	case vdom.KindText:
		e.WriteString(node.Text)

	default:
		return fmt.Errorf("%w: %d", ErrUnknownKind, node.Kind)
	}
	return nil
}

// DecodeVNode reads a tree from d. Trees nested deeper than MaxVNodeDepth
// are rejected.
func DecodeVNode(d *Decoder) (*vdom.VNode, error) {
	return decodeVNode(d, 0)
}

func decodeVNode(d *Decoder, depth int) (*vdom.VNode, error) {
	if err := checkDepth(depth, MaxVNodeDepth); err != nil {
		return nil, err
	}

	kindByte, err := d.ReadByte()
	if err != nil {
		return nil, err
	}

	switch vdom.VKind(kindByte) {
	case vdom.KindElement:
		tag, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		node := &vdom.VNode{Kind: vdom.KindElement, Tag: tag}

		attrCount, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		node.Attrs = make(vdom.Attrs, attrCount)
		for i := 0; i < attrCount; i++ {
			key, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			value, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			node.Attrs[key] = value
		}

		childCount, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		if childCount > 0 {
			node.Children = make([]*vdom.VNode, childCount)
			for i := range node.Children {
				child, err := decodeVNode(d, depth+1)
				if err != nil {
					return nil, err
				}
				node.Children[i] = child
			}
		}
		return node, nil

	case vdom.KindText:
		text, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return vdom.Text(text), nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kindByte)
	}
}

// MarshalVNode encodes node into a new byte slice.
func MarshalVNode(node *vdom.VNode) ([]byte, error) {
	e := NewEncoder()
	if err := EncodeVNode(e, node); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// UnmarshalVNode decodes a tree that must occupy all of data.
func UnmarshalVNode(data []byte) (*vdom.VNode, error) {
	d := NewDecoder(data)
	node, err := DecodeVNode(d)
	if err != nil {
		return nil, err
	}
	if err := d.Finish(); err != nil {
		return nil, err
	}
	return node, nil
}
