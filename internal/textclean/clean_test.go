package textclean

import (
	"testing"
	"unicode/utf8"
)

func TestClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{name: "empty", input: "", expect: ""},
		{name: "plain text untouched", input: "Data Scientist", expect: "Data Scientist"},
		{name: "null bytes removed", input: "py\x00thon", expect: "python"},
		{name: "invalid bytes dropped", input: "sql\xff\xfe server", expect: "sql server"},
		{name: "composed to NFC", input: "café", expect: "café"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Clean(tt.input)
			if got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
			if !utf8.ValidString(got) {
				t.Fatalf("result is not valid utf-8: %q", got)
			}
		})
	}
}

func TestCleanDocument(t *testing.T) {
	got := CleanDocument("  John\tDoe\r\n\x00Engineer    at   Acme  ")
	expect := "John Doe \n Engineer at Acme"
	if got != expect {
		t.Fatalf("expected %q, got %q", expect, got)
	}

	if CleanDocument("") != "" {
		t.Fatalf("expected empty output for empty input")
	}
}
