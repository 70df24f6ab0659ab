package validator

import (
	"math/rand"
	"strings"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateMarkup_EmptyContent(t *testing.T) {
	result := ValidateMarkup("")
	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
	assert.Equal(t, "markup validation passed with no issues", result.Summary)
}

func TestValidateMarkup_ValidContent(t *testing.T) {
	src := `#set document(title: "Unit (1) \"Test\"", author: "SolveFlow")
#set page(
  paper: "a4",
  header: context [
    #set text(size: 8pt)
    #grid(columns: (1fr, auto))[
      Title
    ][
      Page #counter(page).display("1 of 1", both: true)
    ]
  ],
)
#show heading: it => [
  #v(4pt)
  #it
]
// Q1
#table(
  columns: (1fr, auto),
  fill: (_, row) => if row == 0 { rgb("#F5F5F5") } else { white },
  [*Subject*], [*Marks*],
)
#text(size: 10pt)[Force $ F = frac(k q_1 q_2, r^2) $ acts.]
`
	result := ValidateMarkup(src)
	assert.True(t, result.Valid, FormatIssues(result.Issues))
	assert.Empty(t, result.Issues)
}

func TestValidateMarkup_PlainTextDelimiters(t *testing.T) {
	// Parentheses, braces and quotes in markup are just text.
	tests := []string{
		`#text[Answer 1) and (2]`,
		`He said "hi`,
		`#text[a } stray brace]`,
		`#text[(A)]`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			result := ValidateMarkup(src)
			assert.True(t, result.Valid, FormatIssues(result.Issues))
		})
	}
}

func TestValidateMarkup_Errors(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		typ      string
		line     int
		contains string
	}{
		{"unclosed content block", "#text[\nhello\n", TypeBracket, 1, "unclosed '['"},
		{"unmatched closing bracket", "hello\n]", TypeBracket, 2, "unmatched closing ']'"},
		{"unclosed call", "#block(\n  width: 100%,\n", TypeBracket, 1, "unclosed '('"},
		{"wrong closer in code", "#block(width: 1pt]\n", TypeBracket, 1, "unmatched closing ']'"},
		{"unterminated math", "a\n$ x + y", TypeMath, 2, "unterminated math"},
		{"unterminated string", `#set document(title: "abc)`, TypeString, 1, "unterminated string"},
		{"unterminated block comment", "/* open\n", TypeComment, 1, "unterminated block comment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateMarkup(tt.src)
			require.False(t, result.Valid, "expected an error")
			errs := result.Errors()
			require.NotEmpty(t, errs)
			assert.Equal(t, tt.typ, errs[0].Type)
			assert.Equal(t, tt.line, errs[0].Line)
			if tt.contains != "" {
				assert.Contains(t, errs[0].Message, tt.contains)
			}
			assert.Contains(t, result.Summary, "validation failed")
		})
	}
}

func TestValidateMarkup_MathDelimitersAreWarnings(t *testing.T) {
	result := ValidateMarkup("Interval $[0, 1)$ and $ (a $ done")
	assert.True(t, result.Valid)
	warnings := result.Warnings()
	assert.Len(t, warnings, 2)
	for _, w := range warnings {
		assert.Equal(t, TypeBracket, w.Type)
	}
	assert.Contains(t, result.Summary, "2 warning(s)")
}

func TestValidateMarkup_IgnoresComments(t *testing.T) {
	src := "// unmatched [ in a line comment\n/* and ( in /* nested */ block ] */\n#text[ok]"
	result := ValidateMarkup(src)
	assert.True(t, result.Valid, FormatIssues(result.Issues))
	assert.Empty(t, result.Issues)
}

func TestValidateMarkup_Escapes(t *testing.T) {
	tests := []string{
		`\[ not a block \]`,
		`\$ 5 and \# and \\`,
		`$ "a \" b" + x \ y $`,
		`#text[\]]`,
	}
	for _, src := range tests {
		t.Run(src, func(t *testing.T) {
			result := ValidateMarkup(src)
			assert.True(t, result.Valid, FormatIssues(result.Issues))
			assert.Empty(t, result.Issues)
		})
	}
}

func TestValidateMarkup_StringsInMath(t *testing.T) {
	result := ValidateMarkup(`$ 18 thin "g ( ]" $`)
	assert.Empty(t, result.Issues)
}

func TestValidateMarkup_Columns(t *testing.T) {
	result := ValidateMarkup("ok\n  ]")
	require.Len(t, result.Issues, 1)
	assert.Equal(t, 2, result.Issues[0].Line)
	assert.Equal(t, 3, result.Issues[0].Column)
}

func TestFormatIssues(t *testing.T) {
	assert.Equal(t, "No issues found", FormatIssues(nil))

	out := FormatIssues([]ValidationIssue{
		{Severity: SeverityError, Line: 3, Column: 1, Message: "unclosed '['"},
		{Severity: SeverityWarning, Line: 5, Column: 7, Message: "unmatched closing ')' in math"},
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "[ERROR] line 3, column 1: unclosed '['", lines[0])
	assert.Equal(t, "[WARNING] line 5, column 7: unmatched closing ')' in math", lines[1])
}

// Balanced content-block nests never produce issues, whatever plain text
// surrounds them.
func TestValidateMarkup_BalancedBlocksProperty(t *testing.T) {
	pieces := []string{"#text[", "] ", "word ", "(", ")", "\"", "{", "}", "\n", "#v(1pt) ", "$x$"}
	config := &quick.Config{MaxCount: 100, Rand: rand.New(rand.NewSource(42))}

	property := func(seed int64) bool {
		r := rand.New(rand.NewSource(seed))
		var sb strings.Builder
		depth := 0
		for i := 0; i < 40; i++ {
			p := pieces[r.Intn(len(pieces))]
			if p == "] " {
				if depth == 0 {
					continue
				}
				depth--
			}
			if p == "#text[" {
				depth++
			}
			sb.WriteString(p)
		}
		sb.WriteString(strings.Repeat("] ", depth))

		result := ValidateMarkup(sb.String())
		if !result.Valid {
			t.Logf("input %q: %s", sb.String(), FormatIssues(result.Issues))
		}
		return result.Valid
	}

	if err := quick.Check(property, config); err != nil {
		t.Error(err)
	}
}

func TestValidateMarkup_NeverPanics(t *testing.T) {
	config := &quick.Config{MaxCount: 200, Rand: rand.New(rand.NewSource(42))}
	property := func(s string) bool {
		result := ValidateMarkup(s)
		return result != nil && result.Summary != ""
	}
	if err := quick.Check(property, config); err != nil {
		t.Error(err)
	}
}
