package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"solveflow/internal/compiler"
	"solveflow/internal/config"
	"solveflow/internal/docsource"
	"solveflow/internal/extractor"
	"solveflow/internal/generator"
	"solveflow/internal/logger"
	"solveflow/internal/results"
	"solveflow/internal/types"
)

// Status is the last phase reported by the generation pipeline
type Status struct {
	Phase   generator.Phase
	Message string
}

// StatusCallback is a function type for status update callbacks.
type StatusCallback func(status Status)

// App wires configuration, the typst compiler, the generator and the
// extractor together for the command line.
type App struct {
	ctx       context.Context
	config    *config.ConfigManager
	compiler  *compiler.TypstCompiler
	generator *generator.Generator
	results   *results.ResultManager

	newExtractor func(ctx context.Context, cfg extractor.Config) (paperExtractor, error)

	// validate rejects documents that break the schema before rendering
	validate bool

	status         Status
	statusMu       sync.RWMutex
	statusCallback StatusCallback
}

// paperExtractor is the part of the extractor the App needs
type paperExtractor interface {
	ExtractFile(ctx context.Context, path string, maxBytes int64) (*types.Document, error)
}

func newPaperExtractor(ctx context.Context, cfg extractor.Config) (paperExtractor, error) {
	ex, err := extractor.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// NewApp creates an App that reads the default config file.
func NewApp() *App {
	return &App{validate: true, newExtractor: newPaperExtractor}
}

// NewAppWithConfig creates a new App with a custom config path.
func NewAppWithConfig(configPath string) (*App, error) {
	configMgr, err := config.NewConfigManager(configPath)
	if err != nil {
		return nil, err
	}
	return &App{config: configMgr, validate: true, newExtractor: newPaperExtractor}, nil
}

// startup loads configuration and creates the compiler and generator.
func (a *App) startup(ctx context.Context) error {
	a.ctx = ctx
	logger.Info("application starting up")

	if a.config == nil {
		configMgr, err := config.NewConfigManager("")
		if err != nil {
			return err
		}
		a.config = configMgr
	}
	if err := a.config.Load(); err != nil {
		return err
	}

	binary := a.config.GetTypstBinary()
	if binary == "" {
		binary = compiler.ResolveBinary(scriptsDir())
	}
	timeout := time.Duration(a.config.GetCompileTimeoutSec()) * time.Second
	a.compiler = compiler.NewTypstCompiler(binary, a.config.GetWorkDirectory(), timeout)
	logger.Debug("compiler initialized",
		logger.String("binary", binary),
		logger.String("timeout", timeout.String()))

	a.generator = generator.New(a.compiler)
	a.generator.SetStatusCallback(func(phase generator.Phase, message string) {
		a.updateStatus(phase, message)
	})

	if a.results == nil {
		resultMgr, err := results.NewResultManager("")
		if err != nil {
			logger.Warn("failed to initialize result manager", logger.Err(err))
		} else {
			a.results = resultMgr
			logger.Debug("result manager initialized", logger.String("baseDir", resultMgr.GetBaseDir()))
		}
	}

	logger.Info("application startup complete")
	return nil
}

// scriptsDir is where bundled typst binaries live: ./scripts next to the
// executable.
func scriptsDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "scripts"
	}
	return filepath.Join(filepath.Dir(exe), "scripts")
}

// GetConfig returns the config manager
func (a *App) GetConfig() *config.ConfigManager {
	return a.config
}

// GetCompiler returns the typst compiler
func (a *App) GetCompiler() *compiler.TypstCompiler {
	return a.compiler
}

// SetValidate turns schema validation of input documents on or off.
func (a *App) SetValidate(validate bool) {
	a.validate = validate
}

// SetStatusCallback sets the callback for status updates.
func (a *App) SetStatusCallback(callback StatusCallback) {
	a.statusMu.Lock()
	defer a.statusMu.Unlock()
	a.statusCallback = callback
}

// GetStatus returns the last reported status.
func (a *App) GetStatus() Status {
	a.statusMu.RLock()
	defer a.statusMu.RUnlock()
	return a.status
}

func (a *App) updateStatus(phase generator.Phase, message string) {
	a.statusMu.Lock()
	a.status = Status{Phase: phase, Message: message}
	callback := a.statusCallback
	a.statusMu.Unlock()

	if callback != nil {
		callback(Status{Phase: phase, Message: message})
	}
}

// LoadDocument reads a JSON or YAML document and, unless validation is off,
// checks it against the schema.
func (a *App) LoadDocument(path string) (*types.Document, error) {
	doc, err := docsource.Load(path)
	if err != nil {
		return nil, err
	}
	if a.validate {
		if err := docsource.Validate(doc); err != nil {
			return nil, err
		}
	}
	return docsource.Normalize(doc), nil
}

// BuildMarkup returns the Typst source for doc.
func (a *App) BuildMarkup(doc *types.Document) (string, error) {
	markup, _, err := a.generator.Markup(doc)
	return markup, err
}

// GeneratePDF renders and compiles doc.
func (a *App) GeneratePDF(doc *types.Document) (*generator.Output, error) {
	return a.generator.Generate(a.ctx, doc)
}

// ExtractDocument reads a question paper and asks the configured model to
// structure it. Unless validation is off, a document that breaks the schema
// is rejected and stored as failed. A finished extraction of the same file
// is reused unless force is set; cached reports whether that happened.
func (a *App) ExtractDocument(paperPath string, force bool) (doc *types.Document, cached bool, err error) {
	if a.results != nil && !force {
		if info, err := a.results.FindComplete(paperPath); err == nil && info != nil {
			if doc, err := a.results.LoadDocument(info.ID); err == nil && (!a.validate || docsource.Validate(doc) == nil) {
				logger.Info("using stored extraction", logger.String("id", info.ID), logger.String("title", info.Title))
				return doc, true, nil
			}
		}
	}

	ex, err := a.newExtractor(a.ctx, extractor.Config{
		Provider:   a.config.GetLLMProvider(),
		APIKey:     a.config.GetAPIKey(),
		Model:      a.config.GetModel(),
		BaseURL:    a.config.GetBaseURL(),
		Timeout:    time.Duration(a.config.GetExtractTimeoutSec()) * time.Second,
		MaxRetries: a.config.GetMaxRetries(),
	})
	if err != nil {
		return nil, false, err
	}

	doc, err = ex.ExtractFile(a.ctx, paperPath, a.config.GetMaxUploadBytes())
	if err == nil && a.validate {
		if verr := docsource.Validate(doc); verr != nil {
			err = types.NewAppErrorWithDetails(types.ErrExtract,
				"extracted document failed validation", verr.Error(), verr)
		}
	}
	a.recordExtraction(paperPath, doc, err)
	if err != nil {
		return nil, false, err
	}
	return doc, false, nil
}

// recordExtraction stores the outcome of an extraction. Failures to store
// are logged and otherwise ignored.
func (a *App) recordExtraction(paperPath string, doc *types.Document, extractErr error) {
	if a.results == nil {
		return
	}
	md5Hash, err := results.CalculateFileMD5(paperPath)
	if err != nil {
		return
	}
	info := &results.PaperInfo{
		SourceFileName: filepath.Base(paperPath),
		SourceMD5:      md5Hash,
		Status:         results.StatusError,
	}
	if extractErr != nil {
		info.ErrorMessage = extractErr.Error()
		err = a.results.SavePaperInfo(info)
	} else {
		err = a.results.SaveDocument(info, doc)
	}
	if err != nil {
		logger.Warn("failed to store extraction", logger.Err(err))
	}
}

// ListExtractions returns stored extractions, newest first.
func (a *App) ListExtractions() ([]*results.PaperInfo, error) {
	if a.results == nil {
		return nil, types.NewAppError(types.ErrConfig, "result storage is not available", nil)
	}
	return a.results.ListPapers()
}

// SaveSettings stores non-empty settings in the config file.
func (a *App) SaveSettings(provider, apiKey, baseURL, model, typstBinary, workDir string) error {
	return a.config.UpdateConfig(provider, apiKey, baseURL, model, typstBinary, workDir)
}

// StartupCheckResult reports whether the external pieces are usable
type StartupCheckResult struct {
	TypstInstalled bool
	TypstVersion   string
	LLMConfigured  bool
	LLMError       string
}

// CheckStartupRequirements checks the typst binary and the LLM settings.
func (a *App) CheckStartupRequirements() *StartupCheckResult {
	logger.Info("checking startup requirements")
	result := &StartupCheckResult{}

	version, err := typstVersion(a.ctx, a.compiler.GetBinary())
	if err == nil {
		result.TypstInstalled = true
		result.TypstVersion = version
	}
	logger.Info("typst check result",
		logger.Bool("installed", result.TypstInstalled),
		logger.String("version", result.TypstVersion))

	result.LLMConfigured, result.LLMError = a.checkLLMConfiguration()
	logger.Info("LLM check result",
		logger.Bool("configured", result.LLMConfigured),
		logger.String("error", result.LLMError))

	return result
}

// typstVersion returns the first line of `typst --version`.
func typstVersion(ctx context.Context, binary string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	output, err := exec.CommandContext(ctx, binary, "--version").Output()
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(string(output), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", fmt.Errorf("no version output")
	}
	return line, nil
}

func (a *App) checkLLMConfiguration() (bool, string) {
	if !extractor.SupportedProvider(a.config.GetLLMProvider()) {
		return false, fmt.Sprintf("unknown provider %q", a.config.GetLLMProvider())
	}
	if a.config.GetAPIKey() == "" {
		return false, "API key is not set (" + config.EnvLLMAPIKey + ")"
	}
	return true, ""
}
