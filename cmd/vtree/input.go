package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	verrors "github.com/vango-dev/vtree/internal/errors"
	"github.com/vango-dev/vtree/pkg/htmldom"
	"github.com/vango-dev/vtree/pkg/vdom"
)

// loadTree reads a tree from path. Files ending in .json hold VNode JSON;
// anything else is parsed as an HTML fragment.
func loadTree(path string, opts ...htmldom.ParseOption) (*vdom.VNode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, verrors.New("VT003").WithFile(path).Wrap(err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, verrors.New("VT004").WithFile(path)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		var node vdom.VNode
		if err := json.Unmarshal(data, &node); err != nil {
			e := verrors.New("VT002").WithFile(path).Wrap(err)
			var se *json.SyntaxError
			if errors.As(err, &se) {
				line, col := position(data, se.Offset)
				e = e.WithLocation(path, line, col)
			}
			return nil, e
		}
		return &node, nil
	}

	node, err := htmldom.Parse(bytes.NewReader(data), opts...)
	if err != nil {
		if errors.Is(err, htmldom.ErrEmptyFragment) {
			return nil, verrors.New("VT004").WithFile(path).Wrap(err)
		}
		return nil, verrors.New("VT001").WithFile(path).Wrap(err)
	}
	return node, nil
}

// position converts a byte offset into a 1-based line and column.
func position(data []byte, offset int64) (int, int) {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}
	before := data[:offset]
	line := bytes.Count(before, []byte("\n")) + 1
	col := int(offset) - bytes.LastIndexByte(before, '\n')
	return line, col
}
