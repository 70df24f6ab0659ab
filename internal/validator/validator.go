// Package validator checks generated Typst markup for structural defects
// before it is handed to the compiler.
//
// The scanner follows Typst's three syntactic modes. In markup, only content
// blocks and math delimiters must balance; parentheses and quotes are plain
// text there. In code, (), [] and {} must balance and "..." is a string
// literal. In math, delimiters may legitimately be left open (half-open
// intervals), so mismatches there are warnings.
package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Severity levels of a ValidationIssue
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// Issue types
const (
	TypeBracket = "bracket"
	TypeMath    = "math"
	TypeString  = "string"
	TypeComment = "comment"
)

// ValidationIssue is a single problem found in the markup
type ValidationIssue struct {
	Severity string `json:"severity"`
	Type     string `json:"type"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Message  string `json:"message"`
}

// ValidationResult contains the results of a markup scan
type ValidationResult struct {
	Valid   bool              `json:"valid"`
	Issues  []ValidationIssue `json:"issues"`
	Summary string            `json:"summary"`
}

// Errors returns the issues with error severity.
func (r *ValidationResult) Errors() []ValidationIssue {
	return r.filter(SeverityError)
}

// Warnings returns the issues with warning severity.
func (r *ValidationResult) Warnings() []ValidationIssue {
	return r.filter(SeverityWarning)
}

func (r *ValidationResult) filter(severity string) []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == severity {
			out = append(out, issue)
		}
	}
	return out
}

type mode int

const (
	modeMarkup   mode = iota
	modeCode          // inside (...) or {...} of a code expression
	modeMath          // inside $...$, including math delimiters
	modeCodeLine      // #set, #show, #let ... up to the end of the line
	modeCodeExpr      // #ident(...)[...].method(...) chain
)

type frame struct {
	open byte // '[', '(', '{', '$' or '#' for code lines and expressions
	mode mode
	line int
	col  int
}

var codeKeywords = map[string]bool{
	"set": true, "show": true, "let": true, "import": true, "include": true,
	"if": true, "for": true, "while": true, "context": true, "return": true,
}

var closerFor = map[byte]byte{'(': ')', '[': ']', '{': '}'}

type scanner struct {
	src    string
	pos    int
	line   int
	col    int
	stack  []frame
	issues []ValidationIssue
}

// ValidateMarkup scans Typst source and reports unbalanced delimiters,
// unterminated math, strings and block comments, with line numbers.
func ValidateMarkup(src string) *ValidationResult {
	s := &scanner{
		src:   src,
		line:  1,
		col:   1,
		stack: []frame{{mode: modeMarkup}},
	}
	s.run()

	result := &ValidationResult{Valid: true, Issues: s.issues}
	if result.Issues == nil {
		result.Issues = []ValidationIssue{}
	}
	for _, issue := range result.Issues {
		if issue.Severity == SeverityError {
			result.Valid = false
			break
		}
	}
	generateSummary(result)
	return result
}

func (s *scanner) run() {
	for s.pos < len(s.src) {
		switch s.top().mode {
		case modeMarkup:
			s.markup()
		case modeMath:
			s.math()
		case modeCode, modeCodeLine:
			s.code()
		case modeCodeExpr:
			s.codeExpr()
		}
	}
	s.finish()
}

func (s *scanner) markup() {
	c := s.src[s.pos]
	switch {
	case c == '\\':
		s.next()
		s.skipRune()
	case s.hasPrefix("//"):
		s.skipLine()
	case s.hasPrefix("/*"):
		s.skipBlockComment()
	case c == '$':
		s.push('$', modeMath)
		s.next()
	case c == '[':
		s.push('[', modeMarkup)
		s.next()
	case c == ']':
		s.close(c)
		s.next()
	case c == '#':
		s.hash()
	default:
		s.next()
	}
}

// hash handles an embedded code expression introduced by '#'.
func (s *scanner) hash() {
	b := s.peekAt(1)
	switch {
	case isIdentStart(b):
		s.push('#', modeCodeExpr)
		s.next()
		if codeKeywords[s.readIdent()] {
			s.top().mode = modeCodeLine
		}
	case b == '(' || b == '[' || b == '{':
		s.push('#', modeCodeExpr)
		s.next()
	default:
		s.next()
	}
}

func (s *scanner) code() {
	top := s.top()
	c := s.src[s.pos]
	switch {
	case c == '\n' && top.mode == modeCodeLine:
		s.pop()
		s.next()
	case c == '"':
		s.skipString()
	case s.hasPrefix("//"):
		s.skipLine()
	case s.hasPrefix("/*"):
		s.skipBlockComment()
	case c == '(' || c == '{':
		s.push(c, modeCode)
		s.next()
	case c == '[':
		s.push('[', modeMarkup)
		s.next()
	case c == ')' || c == '}' || c == ']':
		if top.mode == modeCodeLine {
			// The statement ends at the enclosing block's closer.
			s.pop()
			return
		}
		s.close(c)
		s.next()
	case c == '$':
		s.push('$', modeMath)
		s.next()
	default:
		s.next()
	}
}

func (s *scanner) codeExpr() {
	c := s.src[s.pos]
	switch {
	case c == '(' || c == '{':
		s.push(c, modeCode)
		s.next()
	case c == '[':
		s.push('[', modeMarkup)
		s.next()
	case c == '.' && isIdentStart(s.peekAt(1)):
		s.next()
		s.readIdent()
	default:
		// Anything else ends the expression and belongs to the enclosing mode.
		s.pop()
	}
}

func (s *scanner) math() {
	c := s.src[s.pos]
	switch {
	case c == '\\':
		s.next()
		s.skipRune()
	case c == '"':
		s.skipString()
	case s.hasPrefix("//"):
		s.skipLine()
	case s.hasPrefix("/*"):
		s.skipBlockComment()
	case c == '$':
		s.closeMath()
		s.next()
	case c == '(' || c == '[' || c == '{':
		s.push(c, modeMath)
		s.next()
	case c == ')' || c == ']' || c == '}':
		s.closeMathDelimiter(c)
		s.next()
	case c == '#':
		s.hash()
	default:
		s.next()
	}
}

// close pops the frame matching closer c outside math.
func (s *scanner) close(c byte) {
	for i := len(s.stack) - 1; i > 0; i-- {
		f := s.stack[i]
		if f.open == '$' {
			break
		}
		if f.open != '#' && closerFor[f.open] == c {
			for j := len(s.stack) - 1; j > i; j-- {
				if s.stack[j].open != '#' {
					s.unclosed(s.stack[j], SeverityError)
				}
			}
			s.stack = s.stack[:i]
			return
		}
	}
	s.report(SeverityError, TypeBracket, s.line, s.col, fmt.Sprintf("unmatched closing '%c'", c))
}

func (s *scanner) closeMath() {
	for len(s.stack) > 1 {
		f := s.pop()
		if f.open == '$' {
			return
		}
		if f.mode == modeMath {
			s.unclosed(f, SeverityWarning)
		}
	}
}

func (s *scanner) closeMathDelimiter(c byte) {
	top := s.top()
	if top.open == '$' {
		s.report(SeverityWarning, TypeBracket, s.line, s.col, fmt.Sprintf("unmatched closing '%c' in math", c))
		return
	}
	if closerFor[top.open] != c {
		s.report(SeverityWarning, TypeBracket, s.line, s.col,
			fmt.Sprintf("'%c' opened at line %d closed by '%c' in math", top.open, top.line, c))
	}
	s.pop()
}

func (s *scanner) finish() {
	for len(s.stack) > 1 {
		f := s.pop()
		switch {
		case f.open == '#':
		case f.open == '$':
			s.report(SeverityError, TypeMath, f.line, f.col, "unterminated math, '$' is never closed")
		case f.mode == modeMath:
			s.unclosed(f, SeverityWarning)
		default:
			s.unclosed(f, SeverityError)
		}
	}
}

func (s *scanner) unclosed(f frame, severity string) {
	s.report(severity, TypeBracket, f.line, f.col, fmt.Sprintf("unclosed '%c'", f.open))
}

func (s *scanner) report(severity, typ string, line, col int, msg string) {
	s.issues = append(s.issues, ValidationIssue{
		Severity: severity,
		Type:     typ,
		Line:     line,
		Column:   col,
		Message:  msg,
	})
}

func (s *scanner) skipString() {
	line, col := s.line, s.col
	s.next()
	for s.pos < len(s.src) {
		switch s.src[s.pos] {
		case '\\':
			s.next()
			s.skipRune()
		case '"':
			s.next()
			return
		default:
			s.next()
		}
	}
	s.report(SeverityError, TypeString, line, col, "unterminated string literal")
}

func (s *scanner) skipLine() {
	for s.pos < len(s.src) && s.src[s.pos] != '\n' {
		s.next()
	}
}

// skipBlockComment skips a /* */ comment; Typst block comments nest.
func (s *scanner) skipBlockComment() {
	line, col := s.line, s.col
	depth := 0
	for s.pos < len(s.src) {
		switch {
		case s.hasPrefix("/*"):
			depth++
			s.next()
			s.next()
		case s.hasPrefix("*/"):
			depth--
			s.next()
			s.next()
			if depth == 0 {
				return
			}
		default:
			s.next()
		}
	}
	s.report(SeverityError, TypeComment, line, col, "unterminated block comment")
}

func (s *scanner) readIdent() string {
	start := s.pos
	for s.pos < len(s.src) && isIdentChar(s.src[s.pos]) {
		s.next()
	}
	return s.src[start:s.pos]
}

// skipRune steps over one whole UTF-8 sequence.
func (s *scanner) skipRune() {
	if s.pos >= len(s.src) {
		return
	}
	_, size := utf8.DecodeRuneInString(s.src[s.pos:])
	for i := 0; i < size; i++ {
		s.next()
	}
}

func (s *scanner) next() {
	if s.src[s.pos] == '\n' {
		s.line++
		s.col = 0
	}
	s.pos++
	s.col++
}

func (s *scanner) peekAt(offset int) byte {
	if s.pos+offset < len(s.src) {
		return s.src[s.pos+offset]
	}
	return 0
}

func (s *scanner) hasPrefix(p string) bool {
	return strings.HasPrefix(s.src[s.pos:], p)
}

func (s *scanner) push(open byte, m mode) {
	s.stack = append(s.stack, frame{open: open, mode: m, line: s.line, col: s.col})
}

func (s *scanner) pop() frame {
	f := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return f
}

func (s *scanner) top() *frame {
	return &s.stack[len(s.stack)-1]
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '-' || (c >= '0' && c <= '9')
}

func generateSummary(result *ValidationResult) {
	if len(result.Issues) == 0 {
		result.Summary = "markup validation passed with no issues"
		return
	}

	errorCount := len(result.Errors())
	warningCount := len(result.Issues) - errorCount
	if errorCount > 0 {
		result.Summary = fmt.Sprintf("validation failed: %d error(s), %d warning(s)", errorCount, warningCount)
	} else {
		result.Summary = fmt.Sprintf("validation passed with %d warning(s)", warningCount)
	}
}

// FormatIssues formats validation issues for display
func FormatIssues(issues []ValidationIssue) string {
	if len(issues) == 0 {
		return "No issues found"
	}

	var sb strings.Builder
	for i, issue := range issues {
		fmt.Fprintf(&sb, "[%s] line %d, column %d: %s", strings.ToUpper(issue.Severity), issue.Line, issue.Column, issue.Message)
		if i < len(issues)-1 {
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
