package protocol

import "errors"

// Depth limits for recursive structures.
const (
	// MaxVNodeDepth bounds the nesting depth of decoded trees.
	MaxVNodeDepth = 256

	// MaxPathLength bounds the number of indices in a decoded patch path.
	// A path can be no longer than the tree is deep.
	MaxPathLength = MaxVNodeDepth
)

// ErrMaxDepthExceeded is returned when a decoded tree or path is nested too deeply.
var ErrMaxDepthExceeded = errors.New("protocol: max depth exceeded")

func checkDepth(current, max int) error {
	if current > max {
		return ErrMaxDepthExceeded
	}
	return nil
}
