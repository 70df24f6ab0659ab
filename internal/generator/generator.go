// Package generator turns a practice-paper document into a compiled PDF.
package generator

import (
	"context"
	"regexp"
	"strings"
	"time"

	"solveflow/internal/logger"
	"solveflow/internal/template"
	"solveflow/internal/types"
	"solveflow/internal/validator"
)

// Phase names a step of the generation pipeline
type Phase string

const (
	PhaseBuilding   Phase = "building"
	PhaseValidating Phase = "validating"
	PhaseCompiling  Phase = "compiling"
	PhaseComplete   Phase = "complete"
	PhaseError      Phase = "error"
)

// StatusCallback is called whenever the pipeline enters a new phase
type StatusCallback func(phase Phase, message string)

// Compiler compiles Typst markup into PDF bytes
type Compiler interface {
	Compile(ctx context.Context, markup string) (*types.CompileResult, error)
}

// Output is the result of a successful generation
type Output struct {
	PDF       []byte
	Filename  string
	PageCount int
	Markup    string
	Warnings  []validator.ValidationIssue
}

// Generator runs build, pre-flight validation and compilation
type Generator struct {
	compiler Compiler
	onStatus StatusCallback
}

// New creates a Generator that compiles with c.
func New(c Compiler) *Generator {
	return &Generator{compiler: c}
}

// SetStatusCallback sets the callback for phase changes.
func (g *Generator) SetStatusCallback(cb StatusCallback) {
	g.onStatus = cb
}

func (g *Generator) updateStatus(phase Phase, message string) {
	logger.Debug("generation status", logger.String("phase", string(phase)), logger.String("message", message))
	if g.onStatus != nil {
		g.onStatus(phase, message)
	}
}

// Markup builds the Typst source for doc and runs the pre-flight check.
// Validation errors mean the builder emitted broken markup and are reported
// as INTERNAL_ERROR; warnings are returned alongside the markup.
func (g *Generator) Markup(doc *types.Document) (string, []validator.ValidationIssue, error) {
	if doc == nil {
		return "", nil, types.NewAppError(types.ErrInvalidInput, "document is nil", nil)
	}

	g.updateStatus(PhaseBuilding, "building typst markup")
	markup := template.Build(*doc)

	g.updateStatus(PhaseValidating, "checking markup structure")
	result := validator.ValidateMarkup(markup)
	for _, w := range result.Warnings() {
		logger.Warn("markup warning",
			logger.Int("line", w.Line),
			logger.Int("column", w.Column),
			logger.String("message", w.Message))
	}
	if !result.Valid {
		details := validator.FormatIssues(result.Errors())
		logger.Error("generated markup failed validation", nil, logger.String("issues", details))
		return markup, result.Warnings(), types.NewAppErrorWithDetails(types.ErrInternal,
			"generated markup is structurally invalid", details, nil)
	}
	return markup, result.Warnings(), nil
}

// Generate builds, checks and compiles doc.
func (g *Generator) Generate(ctx context.Context, doc *types.Document) (*Output, error) {
	start := time.Now()

	markup, warnings, err := g.Markup(doc)
	if err != nil {
		g.updateStatus(PhaseError, err.Error())
		return nil, err
	}

	logger.Info("generating practice paper",
		logger.String("title", doc.Title),
		logger.Int("subjects", len(doc.Subjects)),
		logger.Int("questions", doc.QuestionCount()))

	g.updateStatus(PhaseCompiling, "compiling PDF")
	result, err := g.compiler.Compile(ctx, markup)
	if err != nil {
		g.updateStatus(PhaseError, err.Error())
		return nil, err
	}

	out := &Output{
		PDF:       result.PDF,
		Filename:  SafeFilename(doc.Title) + ".pdf",
		PageCount: result.PageCount,
		Markup:    markup,
		Warnings:  warnings,
	}

	logger.Info("practice paper generated",
		logger.String("filename", out.Filename),
		logger.Int("pdfBytes", len(out.PDF)),
		logger.Int("pages", out.PageCount),
		logger.String("elapsed", time.Since(start).Round(time.Millisecond).String()))
	g.updateStatus(PhaseComplete, out.Filename)
	return out, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^a-z0-9]+`)

// maxFilenameLen caps the stem returned by SafeFilename.
const maxFilenameLen = 60

// SafeFilename turns a title into a lowercase ASCII file stem: runs of
// anything but letters and digits become '_', the edges are trimmed and the
// result is cut to 60 characters. An empty result becomes "dpp".
func SafeFilename(title string) string {
	s := unsafeFilenameChars.ReplaceAllString(strings.ToLower(title), "_")
	s = strings.TrimPrefix(s, "_")
	s = strings.TrimSuffix(s, "_")
	if len(s) > maxFilenameLen {
		s = s[:maxFilenameLen]
	}
	if s == "" {
		return "dpp"
	}
	return s
}
