// Package compiler runs the Typst binary over generated markup and inspects
// the resulting PDF.
package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"solveflow/internal/logger"
	"solveflow/internal/types"
)

const (
	// DefaultBinary is looked up on PATH when no bundled binary exists
	DefaultBinary = "typst"
	// DefaultTimeout is the default compilation timeout
	DefaultTimeout = 45 * time.Second

	linuxBinary = "typst-linux-x64"
	macBinary   = "typst-mac-arm64"
)

// TypstCompiler compiles Typst markup to PDF with an external typst binary
type TypstCompiler struct {
	binary  string        // path to the typst executable
	workDir string        // scratch directory for .typ/.pdf pairs
	timeout time.Duration // per-run timeout
}

// NewTypstCompiler creates a new TypstCompiler instance.
// An empty workDir means os.TempDir().
func NewTypstCompiler(binary string, workDir string, timeout time.Duration) *TypstCompiler {
	if binary == "" {
		binary = DefaultBinary
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &TypstCompiler{
		binary:  binary,
		workDir: workDir,
		timeout: timeout,
	}
}

// ResolveBinary picks the bundled typst binary for this platform from
// scriptsDir/bin, falling back to "typst" on PATH.
func ResolveBinary(scriptsDir string) string {
	name := macBinary
	if runtime.GOOS == "linux" {
		name = linuxBinary
	}

	if scriptsDir != "" {
		candidate := filepath.Join(scriptsDir, "bin", name)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}

	if path, err := exec.LookPath(DefaultBinary); err == nil {
		return path
	}
	return DefaultBinary
}

// Compile writes markup to a scratch file, runs `typst compile` on it and
// returns the PDF bytes. Scratch files are removed on every path.
func (c *TypstCompiler) Compile(ctx context.Context, markup string) (*types.CompileResult, error) {
	dir := c.workDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &types.CompileResult{ErrorMsg: err.Error()},
			types.NewAppError(types.ErrCompile, "failed to create work directory", err)
	}

	base := "dpp-" + uuid.NewString()
	inPath := filepath.Join(dir, base+".typ")
	outPath := filepath.Join(dir, base+".pdf")
	defer func() {
		os.Remove(inPath)
		os.Remove(outPath)
	}()

	if err := os.WriteFile(inPath, []byte(markup), 0644); err != nil {
		return &types.CompileResult{ErrorMsg: err.Error()},
			types.NewAppError(types.ErrCompile, "failed to write typst source", err)
	}

	logger.Info("compiling typst document",
		logger.String("binary", c.binary),
		logger.String("source", inPath),
		logger.Int("bytes", len(markup)))

	start := time.Now()
	log, err := c.run(ctx, inPath, outPath)
	if err != nil {
		logger.Error("typst compilation failed", err, logger.String("source", inPath))
		return &types.CompileResult{Log: log, ErrorMsg: err.Error()}, err
	}

	pdfData, err := os.ReadFile(outPath)
	if err != nil {
		logger.Error("typst produced no PDF", err, logger.String("output", outPath))
		return &types.CompileResult{Log: log, ErrorMsg: "typst produced no PDF"},
			types.NewAppErrorWithDetails(types.ErrCompile, "typst produced no PDF", log, err)
	}

	pages := 0
	if info, err := Inspect(outPath); err != nil {
		logger.Warn("could not inspect compiled PDF", logger.Err(err))
	} else {
		pages = info.PageCount
	}

	logger.Info("typst compilation succeeded",
		logger.Int("pdfBytes", len(pdfData)),
		logger.Int("pages", pages),
		logger.String("elapsed", time.Since(start).Round(time.Millisecond).String()))

	return &types.CompileResult{
		Success:   true,
		PDF:       pdfData,
		PageCount: pages,
		Log:       log,
	}, nil
}

// run executes a single typst pass
func (c *TypstCompiler) run(ctx context.Context, inPath, outPath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, c.binary, "compile", inPath, outPath)
	cmd.Dir = filepath.Dir(inPath)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	log := combineOutput(stdout.String(), stderr.String())

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return log, types.NewAppErrorWithDetails(types.ErrCompileTimeout,
			fmt.Sprintf("typst compile timed out after %s", c.timeout), log, ctx.Err())
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return log, types.NewAppErrorWithDetails(types.ErrCompile,
				fmt.Sprintf("typst exited with status %d", exitErr.ExitCode()), strings.TrimSpace(stderr.String()), err)
		}
		return log, types.NewAppError(types.ErrCompile, "failed to start typst", err)
	}
	return log, nil
}

// combineOutput combines stdout and stderr into a single log string
func combineOutput(stdout, stderr string) string {
	var parts []string
	if stdout != "" {
		parts = append(parts, stdout)
	}
	if stderr != "" {
		parts = append(parts, stderr)
	}
	return strings.Join(parts, "\n")
}

// GetBinary returns the typst executable
func (c *TypstCompiler) GetBinary() string {
	return c.binary
}

// GetWorkDir returns the scratch directory ("" means the system temp dir)
func (c *TypstCompiler) GetWorkDir() string {
	return c.workDir
}

// GetTimeout returns the compilation timeout
func (c *TypstCompiler) GetTimeout() time.Duration {
	return c.timeout
}

// SetTimeout sets the compilation timeout
func (c *TypstCompiler) SetTimeout(timeout time.Duration) {
	c.timeout = timeout
}

// PDFInfo describes a PDF on disk
type PDFInfo struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	PageCount int    `json:"page_count"`
}

// Inspect validates the PDF at path and reads its page count.
func Inspect(path string) (*PDFInfo, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrFileNotFound, "cannot access PDF file", err)
	}
	if fileInfo.Size() == 0 {
		return nil, types.NewAppError(types.ErrInvalidInput, "PDF file is empty", nil)
	}

	if err := api.ValidateFile(path, model.NewDefaultConfiguration()); err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "invalid PDF file", err)
	}

	ctx, err := api.ReadContextFile(path)
	if err != nil {
		return nil, types.NewAppError(types.ErrInvalidInput, "cannot read PDF file", err)
	}

	return &PDFInfo{
		Path:      path,
		Size:      fileInfo.Size(),
		PageCount: ctx.PageCount,
	}, nil
}
