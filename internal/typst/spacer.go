package typst

import "strings"

// SpacifyIdentifiers separates runs of letters in translated math so Typst
// reads them as implied multiplication of single-letter variables rather
// than as one multi-letter symbol. Known identifiers (everything the
// translator can emit) and single letters are kept. Quoted text spans are
// copied verbatim.
func SpacifyIdentifiers(math string) string {
	var sb strings.Builder
	sb.Grow(len(math) + len(math)/4)

	i := 0
	for i < len(math) {
		c := math[i]
		switch {
		case c == '"':
			j := quotedSpanEnd(math, i)
			sb.WriteString(math[i:j])
			i = j
		case c == '\\' && i+1 < len(math):
			// An escaped character is never part of an identifier.
			sb.WriteString(math[i : i+2])
			i += 2
		case isASCIILetter(c):
			j := i + 1
			for j < len(math) && (isASCIILetter(math[j]) || math[j] == '.') {
				j++
			}
			writeIdentRun(&sb, math[i:j])
			i = j
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}

// quotedSpanEnd returns the index just past the closing quote of the span
// opening at start, honouring \" escapes. An unterminated span runs to the
// end of the input.
func quotedSpanEnd(s string, start int) int {
	for j := start + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case '"':
			return j + 1
		}
	}
	return len(s)
}

func writeIdentRun(sb *strings.Builder, run string) {
	if len(run) == 1 || knownIdents[run] {
		sb.WriteString(run)
		return
	}
	// A trailing dot is punctuation, not part of the identifier.
	trimmed := strings.TrimRight(run, ".")
	if trimmed != run && (len(trimmed) == 1 || knownIdents[trimmed]) {
		sb.WriteString(run)
		return
	}
	for k := 0; k < len(run); k++ {
		if k > 0 && run[k] != '.' && run[k-1] != '.' {
			sb.WriteByte(' ')
		}
		sb.WriteByte(run[k])
	}
}
