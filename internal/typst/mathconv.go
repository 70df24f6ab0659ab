// Package typst converts the question/solution text model (prose with
// markdown emphasis and LaTeX math) into Typst markup.
//
// The math conversion runs in a fixed order: environments, then nested
// fractions to a fixed point, then flat command substitution, then the
// fallback that drops anything still unrecognised. Later phases depend on
// the output of earlier ones, so the order must not change.
package typst

import (
	"regexp"
	"strings"
)

// nestedBraces matches brace content allowing one level of nested braces.
const nestedBraces = `(?:[^{}]|\{[^{}]*\})*`

var (
	fracRegex       = regexp.MustCompile(`\\[dt]?frac\{(` + nestedBraces + `)\}\{(` + nestedBraces + `)\}`)
	binomRegex      = regexp.MustCompile(`\\[dt]?binom\{(` + nestedBraces + `)\}\{(` + nestedBraces + `)\}`)
	shortFracRegex  = regexp.MustCompile(`\\[dt]?frac\s*([0-9a-zA-Z])\s*([0-9a-zA-Z])`)
	textWrapRegex   = regexp.MustCompile(`\\(?:text|textrm|textit|mbox|operatorname)\{([^{}]*)\}`)
	textBoldRegex   = regexp.MustCompile(`\\textbf\{([^{}]*)\}`)
	unknownArgRegex = regexp.MustCompile(`\\[a-zA-Z]+\{([^{}]*)\}`)
	unknownCmdRegex = regexp.MustCompile(`\\[a-zA-Z]+`)
	commandRegex    = regexp.MustCompile(`\\(?:[a-zA-Z]+|[^a-zA-Z])`)
	sizingSpace     = regexp.MustCompile(`^\s*`)
)

// wrapperRule converts one argument-taking command into a Typst call.
type wrapperRule struct {
	re   *regexp.Regexp
	repl string
}

func nestedWrapper(cmd, fn string) wrapperRule {
	return wrapperRule{
		re:   regexp.MustCompile(`\\` + cmd + `\{(` + nestedBraces + `)\}`),
		repl: fn + "(${1})",
	}
}

func flatWrapper(cmd, fn string) wrapperRule {
	return wrapperRule{
		re:   regexp.MustCompile(`\\` + cmd + `\{([^{}]*)\}`),
		repl: fn + "(${1})",
	}
}

// wrapperRules run repeatedly until nothing changes, so nested wrappers
// such as \sqrt{\sqrt{x}} are fully converted.
var wrapperRules = []wrapperRule{
	{regexp.MustCompile(`\\sqrt\[([^\]]*)\]\{(` + nestedBraces + `)\}`), "root(${1}, ${2})"},
	nestedWrapper("sqrt", "sqrt"),
	nestedWrapper("vec", "arrow"),
	nestedWrapper("overrightarrow", "arrow"),
	nestedWrapper("hat", "hat"),
	nestedWrapper("widehat", "hat"),
	nestedWrapper("bar", "overline"),
	nestedWrapper("tilde", "tilde"),
	nestedWrapper("widetilde", "tilde"),
	nestedWrapper("dot", "dot"),
	nestedWrapper("ddot", "dot.double"),
	nestedWrapper("underline", "underline"),
	nestedWrapper("overline", "overline"),
	flatWrapper("mathbb", "bb"),
	flatWrapper("mathcal", "cal"),
	flatWrapper("mathrm", "upright"),
	flatWrapper("mathbf", "bold"),
	flatWrapper("boldsymbol", "bold"),
	// Typst math has no boxed primitive; over+underline is the closest look.
	{regexp.MustCompile(`\\boxed\{(` + nestedBraces + `)\}`), "underline(overline(${1}))"},
	{regexp.MustCompile(`([\^_])\{(` + nestedBraces + `)\}`), "${1}(${2})"},
}

// literalQuote stands in for a double quote typed in the source, which
// Typst math would otherwise read as the start of a string.
const literalQuote = "\uE001"

// TranslateMath converts a single LaTeX math span (no surrounding $) into
// Typst math syntax. It never fails: unknown commands lose their name and
// keep their braced argument, bare unknown commands are dropped.
func TranslateMath(latex string) string {
	latex = strings.ReplaceAll(latex, `\"`, `"`)
	latex = strings.ReplaceAll(latex, `"`, literalQuote)
	latex = ConvertEnvironments(latex)
	latex = ConvertFractions(latex)
	latex = substituteCommands(latex)
	latex = fallbackCleanup(latex)
	latex = strings.ReplaceAll(latex, literalQuote, `\"`)
	return dropDanglingBackslash(latex)
}

// dropDanglingBackslash removes a final unpaired backslash, which would
// escape the closing dollar sign.
func dropDanglingBackslash(latex string) string {
	n := 0
	for n < len(latex) && latex[len(latex)-1-n] == '\\' {
		n++
	}
	if n%2 == 1 {
		return latex[:len(latex)-1]
	}
	return latex
}

// ConvertFractions rewrites \frac and \binom (and their d/t variants) into
// frac(a, b) / binom(a, b), repeating until a fixed point so fractions
// nested deeper than one level resolve over several passes.
func ConvertFractions(latex string) string {
	for {
		prev := latex
		latex = fracRegex.ReplaceAllString(latex, "frac(${1}, ${2})")
		latex = binomRegex.ReplaceAllString(latex, "binom(${1}, ${2})")
		latex = shortFracRegex.ReplaceAllString(latex, "frac(${1}, ${2})")
		if latex == prev {
			return latex
		}
	}
}

func substituteCommands(latex string) string {
	latex = textWrapRegex.ReplaceAllStringFunc(latex, func(m string) string {
		return quoteMathText(textWrapRegex.FindStringSubmatch(m)[1])
	})
	latex = textBoldRegex.ReplaceAllStringFunc(latex, func(m string) string {
		return "bold(" + quoteMathText(textBoldRegex.FindStringSubmatch(m)[1]) + ")"
	})

	for {
		prev := latex
		for _, rule := range wrapperRules {
			latex = rule.re.ReplaceAllString(latex, rule.repl)
		}
		if latex == prev {
			break
		}
	}

	return replaceCommands(latex)
}

// replaceCommands resolves every remaining backslash token from left to
// right. Word replacements are padded with a space when they would
// otherwise run into an adjacent word, number or string.
func replaceCommands(latex string) string {
	var sb strings.Builder
	sb.Grow(len(latex))

	last := 0
	for _, loc := range commandRegex.FindAllStringIndex(latex, -1) {
		start, end := loc[0], loc[1]
		if start < last {
			continue
		}
		sb.WriteString(latex[last:start])
		last = end

		token := latex[start+1 : end]
		if len(token) == 1 && !isASCIILetter(token[0]) {
			repl, ok := symbolEscapes[token[0]]
			if !ok {
				sb.WriteString(latex[start:end])
				continue
			}
			writePadded(&sb, repl, latex, end)
			continue
		}

		if delimiterSizing[token] {
			// Drop the sizing command, the whitespace after it and the
			// invisible "." delimiter of \left. / \right.
			ws := sizingSpace.FindString(latex[end:])
			last = end + len(ws)
			if last < len(latex) && latex[last] == '.' {
				last++
			}
			continue
		}

		repl, ok := commandTable[token]
		if !ok {
			// Leave it for the fallback pass.
			sb.WriteString(latex[start:end])
			continue
		}
		writePadded(&sb, repl, latex, end)
	}
	sb.WriteString(latex[last:])
	return sb.String()
}

func writePadded(sb *strings.Builder, repl, src string, next int) {
	if repl == "" {
		return
	}
	cur := sb.String()
	if len(cur) > 0 && isASCIILetter(repl[0]) && joinsWord(cur[len(cur)-1]) {
		sb.WriteByte(' ')
	}
	sb.WriteString(repl)
	if next < len(src) && isASCIILetter(repl[len(repl)-1]) && (joinsWord(src[next]) || src[next] == '\\') {
		sb.WriteByte(' ')
	}
}

// joinsWord reports whether c would fuse with an adjacent word.
func joinsWord(c byte) bool {
	return isASCIILetter(c) || (c >= '0' && c <= '9') || c == '"'
}

func fallbackCleanup(latex string) string {
	latex = unknownArgRegex.ReplaceAllString(latex, "${1}")
	return unknownCmdRegex.ReplaceAllString(latex, "")
}

// quoteMathText renders literal text inside math as a Typst string.
// Backslashes are dropped so escapes like \% become the bare character.
func quoteMathText(s string) string {
	s = strings.ReplaceAll(s, `\`, "")
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

func isASCIILetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
