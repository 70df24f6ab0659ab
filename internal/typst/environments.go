package typst

import (
	"regexp"
	"strings"
)

// matrixEnv pairs a LaTeX matrix environment with the named delimiter
// argument Typst's mat() needs to reproduce it.
type matrixEnv struct {
	name  string
	delim string
}

// matrixEnvs is ordered so that no pattern can match inside another
// environment's name.
var matrixEnvs = []matrixEnv{
	{"pmatrix", ""},
	{"bmatrix", `delim: "[", `},
	{"Bmatrix", `delim: "{", `},
	{"vmatrix", `delim: "|", `},
	{"Vmatrix", `delim: "||", `},
	{"matrix", "delim: #none, "},
	{"smallmatrix", "delim: #none, "},
}

// alignedEnvs are multi-line equation environments flattened to Typst line
// breaks.
var alignedEnvs = []string{"aligned", "align", "align*", "gathered", "gather", "gather*", "split", "multline", "multline*"}

var (
	matrixEnvRegexes  = compileEnvRegexes(matrixEnvNames())
	alignedEnvRegexes = compileEnvRegexes(alignedEnvs)

	arrayEnvRegex    = regexp.MustCompile(`(?s)\\begin\{array\}\{[^}]*\}(.*?)\\end\{array\}`)
	casesEnvRegex    = regexp.MustCompile(`(?s)\\begin\{cases\}(.*?)\\end\{cases\}`)
	equationEnvRegex = regexp.MustCompile(`(?s)\\begin\{equation\*?\}(.*?)\\end\{equation\*?\}`)

	rowSeparator = regexp.MustCompile(`\\\\(?:\[[^\]]*\])?`)
)

func matrixEnvNames() []string {
	names := make([]string, len(matrixEnvs))
	for i, env := range matrixEnvs {
		names[i] = env.name
	}
	return names
}

func compileEnvRegexes(names []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(names))
	for i, name := range names {
		q := regexp.QuoteMeta(name)
		out[i] = regexp.MustCompile(`(?s)\\begin\{` + q + `\}(.*?)\\end\{` + q + `\}`)
	}
	return out
}

// ConvertEnvironments rewrites \begin{...}...\end{...} blocks into Typst
// calls. It must run before any command substitution, because the row and
// column separators inside the blocks would otherwise be consumed.
func ConvertEnvironments(latex string) string {
	for i, env := range matrixEnvs {
		delim := env.delim
		latex = replaceBody(matrixEnvRegexes[i], latex, func(body string) string {
			return "mat(" + delim + matrixRows(body) + ")"
		})
	}

	latex = replaceBody(arrayEnvRegex, latex, func(body string) string {
		return "mat(delim: #none, " + matrixRows(body) + ")"
	})

	latex = replaceBody(casesEnvRegex, latex, func(body string) string {
		return "cases(" + strings.Join(caseEntries(body), ", ") + ")"
	})

	for _, re := range alignedEnvRegexes {
		latex = replaceBody(re, latex, func(body string) string {
			var lines []string
			for _, line := range splitRows(body) {
				lines = append(lines, strings.TrimSpace(strings.ReplaceAll(line, "&", " ")))
			}
			return strings.Join(lines, ` \ `)
		})
	}

	return equationEnvRegex.ReplaceAllString(latex, "${1}")
}

// replaceBody applies fn to the first capture group of every match of re.
func replaceBody(re *regexp.Regexp, s string, fn func(body string) string) string {
	return re.ReplaceAllStringFunc(s, func(m string) string {
		sub := re.FindStringSubmatch(m)
		return fn(sub[len(sub)-1])
	})
}

// splitRows splits an environment body on \\ (with optional spacing
// argument) and drops blank rows.
func splitRows(body string) []string {
	var rows []string
	for _, r := range rowSeparator.Split(body, -1) {
		r = strings.TrimSpace(r)
		if r != "" {
			rows = append(rows, r)
		}
	}
	return rows
}

// matrixRows renders rows as "a, b; c, d".
func matrixRows(body string) string {
	rows := splitRows(body)
	out := make([]string, len(rows))
	for i, r := range rows {
		cells := strings.Split(r, "&")
		for j := range cells {
			cells[j] = strings.TrimSpace(cells[j])
		}
		out[i] = strings.Join(cells, ", ")
	}
	return strings.Join(out, "; ")
}

// caseEntries renders each cases row as one argument. A trailing comma
// before the & column would otherwise split the row into two arguments.
func caseEntries(body string) []string {
	rows := splitRows(body)
	out := make([]string, len(rows))
	for i, r := range rows {
		cells := strings.Split(r, "&")
		for j := range cells {
			cells[j] = strings.TrimSpace(cells[j])
			if j < len(cells)-1 {
				cells[j] = strings.TrimSpace(strings.TrimSuffix(cells[j], ","))
			}
		}
		out[i] = strings.TrimSpace(strings.Join(cells, " "))
	}
	return out
}
