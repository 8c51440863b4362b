package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vango-dev/vtree/pkg/vdom"
)

func TestPatchesRoundTrip(t *testing.T) {
	pf := &PatchesFrame{
		Seq: 42,
		Patches: []vdom.Patch{
			vdom.SetText(vdom.Path{0, 1}, "new text"),
			vdom.SetAttr(vdom.Path{}, "class", "active"),
			vdom.SetAttr(vdom.Path{2}, "disabled", ""),
			vdom.RemoveAttr(vdom.Path{3, 0}, "id"),
			vdom.AppendChildren(vdom.Path{1}, []*vdom.VNode{vdom.Li("a"), vdom.Text("b")}),
			vdom.RemoveTrailing(vdom.Path{1}, 3),
			vdom.ReplaceNode(vdom.Path{300, 70000}, vdom.Div(vdom.Class("x"), vdom.Span("y"))),
		},
	}

	data, err := EncodePatches(pf)
	if err != nil {
		t.Fatalf("EncodePatches() error = %v", err)
	}
	got, err := DecodePatches(data)
	if err != nil {
		t.Fatalf("DecodePatches() error = %v", err)
	}
	if diff := cmp.Diff(pf, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDiffPatchesRoundTrip(t *testing.T) {
	prev := vdom.Div(vdom.Class("a"), vdom.Ul(vdom.Li("1"), vdom.Li("2"), vdom.Li("3")), vdom.P("x"))
	next := vdom.Div(vdom.ID("y"), vdom.Ul(vdom.Li("1")), vdom.Section("z"), vdom.Footer())

	pf := &PatchesFrame{Seq: 7, Patches: vdom.Diff(prev, next)}
	data, err := EncodePatches(pf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodePatches(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(pf, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyPatchesFrame(t *testing.T) {
	data, err := EncodePatches(&PatchesFrame{Seq: 1})
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodePatches(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Seq != 1 || len(got.Patches) != 0 {
		t.Errorf("DecodePatches() = %+v, want seq 1 with no patches", got)
	}
}

func TestTreeFrameRoundTrip(t *testing.T) {
	tf := &TreeFrame{Seq: 9, Root: vdom.Main(vdom.H1("hi"), vdom.P(vdom.Class("c"), "body"))}
	data, err := EncodeTreeFrame(tf)
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeTreeFrame(data)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(tf, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPatchCodecErrors(t *testing.T) {
	e := NewEncoder()
	if err := EncodePatch(e, &vdom.Patch{Op: 0x7F}); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("EncodePatch(op 0x7F) error = %v, want ErrUnknownOp", err)
	}

	e.Reset()
	e.WriteByte(0x7F)
	EncodePath(e, vdom.Path{})
	if _, err := DecodePatch(NewDecoder(e.Bytes())); !errors.Is(err, ErrUnknownOp) {
		t.Errorf("DecodePatch(op 0x7F) error = %v, want ErrUnknownOp", err)
	}

	e.Reset()
	e.WriteUvarint(MaxPathLength + 1)
	for i := 0; i <= MaxPathLength; i++ {
		e.WriteUvarint(0)
	}
	if _, err := DecodePath(NewDecoder(e.Bytes())); !errors.Is(err, ErrMaxDepthExceeded) {
		t.Errorf("DecodePath(too long) error = %v, want ErrMaxDepthExceeded", err)
	}

	if _, err := EncodePatches(&PatchesFrame{Patches: []vdom.Patch{vdom.ReplaceNode(nil, nil)}}); !errors.Is(err, ErrNilNode) {
		t.Errorf("EncodePatches(nil node) error = %v, want ErrNilNode", err)
	}
}

func BenchmarkEncodePatches(b *testing.B) {
	patches := make([]vdom.Patch, 100)
	for i := range patches {
		patches[i] = vdom.SetText(vdom.Path{i % 10, i}, "text")
	}
	pf := &PatchesFrame{Seq: 1, Patches: patches}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = EncodePatches(pf)
	}
}

func BenchmarkDecodePatches(b *testing.B) {
	patches := make([]vdom.Patch, 100)
	for i := range patches {
		patches[i] = vdom.SetText(vdom.Path{i % 10, i}, "text")
	}
	data, _ := EncodePatches(&PatchesFrame{Seq: 1, Patches: patches})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = DecodePatches(data)
	}
}
