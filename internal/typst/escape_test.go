package typst

import (
	"strings"
	"testing"
	"testing/quick"
)

func TestEscapeText(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Physics", "Physics"},
		{"NEET 2025 · Mock", "NEET 2025 · Mock"},
		{"#1 rank", `\#1 rank`},
		{"a@b.com", `a\@b.com`},
		{"[draft]", `\[draft\]`},
		{"x < y > z", `x \< y \> z`},
		{"50$ fee", `50\$ fee`},
		{`C:\path`, `C:\\path`},
		{"*not bold*", `\*not bold\*`},
		{"snake_case", `snake\_case`},
		{"`code`", "\\`code\\`"},
		{"http://x", `http:\/\/x`},
		{"a/b", "a/b"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := EscapeText(tt.input); got != tt.want {
			t.Errorf("EscapeText(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEscapeText_NoSpecialsUnchanged_Quick(t *testing.T) {
	f := func(s string) bool {
		if strings.ContainsAny(s, "\\#$@<>[]*_`/") {
			return true
		}
		return EscapeText(s) == s
	}

	if err := quick.Check(f, quickConfig()); err != nil {
		t.Error(err)
	}
}

func TestEscapeText_NoBareSpecials_Quick(t *testing.T) {
	// Every special character in the output is preceded by a backslash.
	f := func(s string) bool {
		out := EscapeText(s)
		for i := 0; i < len(out); i++ {
			if out[i] == '\\' {
				i++
				continue
			}
			if strings.IndexByte("#$@<>[]*_`", out[i]) >= 0 {
				return false
			}
		}
		return true
	}

	if err := quick.Check(f, quickConfig()); err != nil {
		t.Error(err)
	}
}

func TestQuoteString(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"DPP 12", `"DPP 12"`},
		{`He said "hi"`, `"He said \"hi\""`},
		{`a\b`, `"a\\b"`},
		{"line1\nline2", `"line1\nline2"`},
		{"", `""`},
	}

	for _, tt := range tests {
		if got := QuoteString(tt.input); got != tt.want {
			t.Errorf("QuoteString(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
