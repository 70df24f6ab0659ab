package typst

import "strings"

// markupEscaper escapes characters that Typst content mode would read as
// syntax. The backslash comes first in the list but strings.Replacer works
// in a single pass, so inserted backslashes are never escaped twice.
var markupEscaper = strings.NewReplacer(
	`\`, `\\`,
	"#", `\#`,
	"$", `\$`,
	"@", `\@`,
	"<", `\<`,
	">", `\>`,
	"[", `\[`,
	"]", `\]`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"//", `\/\/`,
)

// EscapeText escapes plain text so Typst shows it literally in content mode.
// Text without special characters is returned unchanged.
func EscapeText(s string) string {
	if !strings.ContainsAny(s, "\\#$@<>[]*_`/") {
		return s
	}
	return markupEscaper.Replace(s)
}

// QuoteString renders s as a Typst string literal, for use in code-mode
// arguments such as #set document(title: ...).
func QuoteString(s string) string {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	sb.WriteByte('"')
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
