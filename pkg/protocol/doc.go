// Package protocol is the binary wire format for trees and patch lists.
//
// Messages travel as frames: a 4 byte header (type, flags, big-endian
// payload length) followed by the payload.
//
//	FrameTree     client → host   TreeFrame{Seq, Root}
//	FramePatches  host → client   PatchesFrame{Seq, Patches}
//	FrameReset    client → host   optional seq varint
//	FrameError    host → client   ErrorMessage
//
// Integers are unsigned varints and strings are length-prefixed. Decoding
// enforces allocation, collection and depth limits so a hostile peer
// cannot force large allocations or deep recursion.
//
// # Elements
//
//	kind(1) tag attrCount {key value}... childCount child...
//
// Attributes are written in sorted key order so encoding is deterministic.
//
// # Patches
//
//	op(1) pathLen index... payload
//
// The payload depends on the op:
//
//	SetText         text
//	SetAttr         key value
//	RemoveAttr      key
//	AppendChildren  count node...
//	RemoveTrailing  count
//	ReplaceNode     node
//
// Buffer is a capacity-bounded byte buffer with an explicit ownership
// model, used to stage encoded messages.
package protocol
