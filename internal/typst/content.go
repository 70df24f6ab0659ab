package typst

import (
	"regexp"
	"strings"
)

var (
	// Block math must come first in the alternation so "$$" is never read
	// as two empty inline spans. Inline math may not contain a newline.
	mathSpanRegex = regexp.MustCompile(`(?s)\$\$.*?\$\$|\$[^$\n]+?\$`)

	// **bold** and *italic* in a single pass, bold first.
	emphasisRegex = regexp.MustCompile(`\*\*([^*]+)\*\*|\*([^*\n]+)\*`)
)

// escapedDollar stands in for \$ while math spans are located, so a
// currency amount never opens or closes a span.
const escapedDollar = "\uE000"

// ToMarkup converts a free-text field (prose, markdown emphasis, inline and
// block LaTeX math) into Typst content markup.
func ToMarkup(text string) string {
	text = strings.ReplaceAll(text, `\$`, escapedDollar)

	var sb strings.Builder
	sb.Grow(len(text) + len(text)/2)

	last := 0
	for _, loc := range mathSpanRegex.FindAllStringIndex(text, -1) {
		sb.WriteString(plainMarkup(text[last:loc[0]]))
		span := strings.ReplaceAll(text[loc[0]:loc[1]], escapedDollar, `\$`)
		if strings.HasPrefix(span, "$$") {
			sb.WriteString(BlockMath(span[2 : len(span)-2]))
		} else {
			sb.WriteString(InlineMath(span[1 : len(span)-1]))
		}
		last = loc[1]
	}
	sb.WriteString(plainMarkup(text[last:]))
	return sb.String()
}

// BlockMath renders LaTeX as Typst display math. The spaces inside the
// dollar signs are what make Typst typeset it as a block.
func BlockMath(latex string) string {
	return "$ " + SpacifyIdentifiers(TranslateMath(strings.TrimSpace(latex))) + " $"
}

// InlineMath renders LaTeX as Typst inline math. A leading sub- or
// superscript gets a zero-width base, since Typst rejects a bare script.
func InlineMath(latex string) string {
	inner := SpacifyIdentifiers(TranslateMath(strings.TrimSpace(latex)))
	inner = strings.TrimLeft(inner, " \t")
	if strings.HasPrefix(inner, "^") || strings.HasPrefix(inner, "_") {
		inner = "zws" + inner
	}
	return "$" + inner + "$"
}

func plainMarkup(s string) string {
	if s == "" {
		return ""
	}
	return strings.ReplaceAll(emphasisMarkup(s), escapedDollar, `\$`)
}

func emphasisMarkup(s string) string {
	var sb strings.Builder
	last := 0
	for _, m := range emphasisRegex.FindAllStringSubmatchIndex(s, -1) {
		sb.WriteString(EscapeText(s[last:m[0]]))
		if m[2] >= 0 {
			sb.WriteString("*" + EscapeText(s[m[2]:m[3]]) + "*")
		} else {
			sb.WriteString("_" + EscapeText(s[m[4]:m[5]]) + "_")
		}
		last = m[1]
	}
	sb.WriteString(EscapeText(s[last:]))
	return sb.String()
}
