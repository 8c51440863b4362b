package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "input error",
			code:    "VT001",
			wantMsg: "Invalid HTML input",
			wantCat: CategoryInput,
		},
		{
			name:    "reconcile error",
			code:    "VT021",
			wantMsg: "Path resolution failed",
			wantCat: CategoryReconcile,
		},
		{
			name:    "config error",
			code:    "VT120",
			wantMsg: "Invalid configuration",
			wantCat: CategoryConfig,
		},
		{
			name:    "unknown error code",
			code:    "VT999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "file %q not found", "a.html")
	if err.Message != `file "a.html" not found` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Category != CategoryCLI {
		t.Errorf("Category = %q, want %q", err.Category, CategoryCLI)
	}
}

func TestError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"coded", New("VT122"), "VT122: Configuration file not found"},
		{"uncoded", &Error{Message: "test error"}, "test error"},
		{"wrapped", New("VT003").Wrap(io.ErrUnexpectedEOF), "VT003: Input file unreadable: unexpected EOF"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestError_Builders(t *testing.T) {
	err := New("VT001").
		WithLocation("a.html", 3, 7).
		WithDetail("unexpected end tag").
		WithSuggestion("close the div")

	if err.Location == nil || err.Location.Line != 3 || err.Location.Column != 7 {
		t.Fatalf("Location = %+v", err.Location)
	}
	if err.Detail != "unexpected end tag" {
		t.Errorf("Detail = %q", err.Detail)
	}
	if err.Suggestion != "close the div" {
		t.Errorf("Suggestion = %q", err.Suggestion)
	}

	err = New("VT003").WithFile("b.json")
	if got := err.Location.String(); got != "b.json" {
		t.Errorf("Location.String() = %q, want b.json", got)
	}
}

func TestError_Wrap(t *testing.T) {
	inner := fmt.Errorf("inner: %w", io.EOF)
	err := New("VT121").Wrap(inner)

	if !Is(err, io.EOF) {
		t.Error("Is should find io.EOF through the chain")
	}
	if err.Unwrap() != inner {
		t.Error("Unwrap should return the wrapped error")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "VT001") != nil {
		t.Error("FromError(nil) should return nil")
	}

	coded := New("VT120")
	wrapped := fmt.Errorf("loading: %w", coded)
	if got := FromError(wrapped, "VT001"); got != coded {
		t.Errorf("FromError should return the coded error in the chain, got %v", got)
	}

	plain := FromError(io.EOF, "VT003")
	if plain.Code != "VT003" || plain.Wrapped != io.EOF {
		t.Errorf("FromError(plain) = %+v", plain)
	}
}

func TestCode(t *testing.T) {
	if got := Code(fmt.Errorf("x: %w", New("VT060"))); got != "VT060" {
		t.Errorf("Code() = %q, want VT060", got)
	}
	if got := Code(io.EOF); got != "" {
		t.Errorf("Code(plain) = %q, want empty", got)
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		loc  *Location
		want string
	}{
		{nil, ""},
		{&Location{File: "a.html"}, "a.html"},
		{&Location{File: "a.html", Line: 4}, "a.html:4"},
		{&Location{File: "a.html", Line: 4, Column: 2}, "a.html:4:2"},
	}
	for _, tt := range tests {
		if got := tt.loc.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	err := New("VT122").
		WithFile("deploy/vtree.json").
		WithSuggestion("Create vtree.json").
		Wrap(io.EOF)
	out := err.Format()

	for _, want := range []string{
		"ERROR VT122: Configuration file not found",
		"deploy/vtree.json",
		"No vtree.json or vtree.yaml was found.",
		"Cause: EOF",
		"Hint: Create vtree.json",
		"Learn more: https://vtree.dev/docs/errors/VT122",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() should not contain ANSI codes when colors are disabled")
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("VT001").WithLocation("a.html", 2, 0)
	if got, want := err.FormatCompact(), "a.html:2: VT001: Invalid HTML input"; got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("VT120").WithLocation("vtree.yaml", 1, 0).Wrap(io.EOF)

	var got map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &got); jerr != nil {
		t.Fatalf("FormatJSON() is not JSON: %v", jerr)
	}
	if got["code"] != "VT120" {
		t.Errorf("code = %v", got["code"])
	}
	if got["category"] != "config" {
		t.Errorf("category = %v", got["category"])
	}
	if got["cause"] != "EOF" {
		t.Errorf("cause = %v", got["cause"])
	}
	if _, ok := got["location"]; !ok {
		t.Error("JSON should contain location")
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	Fprint(&b, fmt.Errorf("run: %w", New("VT160")))
	if !strings.Contains(b.String(), "ERROR VT160: Server failed") {
		t.Errorf("coded output = %q", b.String())
	}

	b.Reset()
	Fprint(&b, io.EOF)
	if !strings.Contains(b.String(), "ERROR: EOF") {
		t.Errorf("plain output = %q", b.String())
	}
}

func TestRegistry(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 {
		t.Fatal("GetAllCodes() should return codes")
	}
	for i, code := range codes {
		if i > 0 && codes[i-1] >= code {
			t.Errorf("codes not sorted at %d: %q >= %q", i, codes[i-1], code)
		}
		tmpl, _ := GetTemplate(code)
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("%s: incomplete template %+v", code, tmpl)
		}
		if !strings.HasSuffix(tmpl.DocURL, code) {
			t.Errorf("%s: DocURL = %q", code, tmpl.DocURL)
		}
	}

	if _, ok := GetTemplate("VT999"); ok {
		t.Error("VT999 should not exist")
	}
}

func TestRegister(t *testing.T) {
	Register("VT999", ErrorTemplate{
		Category: CategoryCLI,
		Message:  "Custom test error",
	})
	defer delete(registry, "VT999")

	if err := New("VT999"); err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
}

func TestWrapText(t *testing.T) {
	got := wrapText("short text", 100)
	if len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}

	got = wrapText("this is a longer text that should be wrapped", 20)
	if len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}

	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestColorToggle(t *testing.T) {
	EnableColors()
	if !strings.Contains(red("test"), "\033[") {
		t.Error("red should contain ANSI code when colors enabled")
	}

	DisableColors()
	if strings.Contains(red("test"), "\033[") {
		t.Error("red should not contain ANSI code when colors disabled")
	}
	EnableColors()
}
