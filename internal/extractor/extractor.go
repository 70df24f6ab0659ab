// Package extractor turns the text of an uploaded question paper into a
// structured practice-paper document with an LLM chat model.
package extractor

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"solveflow/internal/docsource"
	"solveflow/internal/logger"
	"solveflow/internal/types"
)

const (
	// ProviderOpenAI covers OpenAI and any OpenAI-compatible endpoint
	ProviderOpenAI = "openai"
	// ProviderGemini is Google's Gemini API
	ProviderGemini = "gemini"
	// ProviderAnthropic is Anthropic's Messages API
	ProviderAnthropic = "anthropic"

	// DefaultModel is the default chat model
	DefaultModel = "gpt-4o"
	// DefaultMaxTokens caps the reply length for providers that require a cap
	DefaultMaxTokens = 8192
	// DefaultTimeout bounds one extraction including retries
	DefaultTimeout = 120 * time.Second
	// DefaultMaxRetries is the number of attempts for a retryable call
	DefaultMaxRetries = 3
	// BaseRetryDelay is the delay before the second attempt; it doubles after that
	BaseRetryDelay = 2 * time.Second
)

// Providers lists the supported provider names.
var Providers = []string{ProviderOpenAI, ProviderGemini, ProviderAnthropic}

var defaultModels = map[string]string{
	ProviderOpenAI:    DefaultModel,
	ProviderGemini:    "gemini-2.0-flash",
	ProviderAnthropic: "claude-3-5-haiku-20241022",
}

// NormalizeProvider lower-cases name and maps "" to the openai provider.
func NormalizeProvider(name string) string {
	provider := strings.ToLower(strings.TrimSpace(name))
	if provider == "" {
		return ProviderOpenAI
	}
	return provider
}

// SupportedProvider reports whether name selects a wired provider.
func SupportedProvider(name string) bool {
	_, ok := defaultModels[NormalizeProvider(name)]
	return ok
}

// ChatModel is the part of an eino chat model the extractor needs
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Config configures an Extractor
type Config struct {
	Provider   string
	APIKey     string
	Model      string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// Extractor asks a chat model to structure paper text into a Document
type Extractor struct {
	chat       ChatModel
	model      string
	timeout    time.Duration
	maxRetries int
	baseDelay  time.Duration

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// New creates an Extractor for cfg.Provider: "openai" (the default, which
// also reaches any OpenAI-compatible endpoint through BaseURL), "gemini" or
// "anthropic".
func New(ctx context.Context, cfg Config) (*Extractor, error) {
	provider := NormalizeProvider(cfg.Provider)
	if !SupportedProvider(provider) {
		return nil, types.NewAppError(types.ErrConfig,
			fmt.Sprintf("unknown LLM provider %q (supported: %s)", cfg.Provider, strings.Join(Providers, ", ")), nil)
	}
	if cfg.APIKey == "" {
		return nil, types.NewAppError(types.ErrConfig, "LLM API key is not set", nil)
	}
	if cfg.Model == "" {
		cfg.Model = defaultModels[provider]
	}

	chatModel, err := newChatModel(ctx, provider, cfg)
	if err != nil {
		return nil, types.NewAppError(types.ErrConfig, "failed to create chat model", err)
	}

	logger.Info("extractor initialized",
		logger.String("provider", provider),
		logger.String("model", cfg.Model),
		logger.String("baseURL", cfg.BaseURL))
	return NewWithModel(chatModel, cfg), nil
}

// newChatModel builds the eino chat model of provider.
func newChatModel(ctx context.Context, provider string, cfg Config) (ChatModel, error) {
	switch provider {
	case ProviderGemini:
		clientConfig := &genai.ClientConfig{
			APIKey:  cfg.APIKey,
			Backend: genai.BackendGeminiAPI,
		}
		if cfg.BaseURL != "" {
			clientConfig.HTTPOptions.BaseURL = cfg.BaseURL
		}
		client, err := genai.NewClient(ctx, clientConfig)
		if err != nil {
			return nil, err
		}
		maxTokens := DefaultMaxTokens
		return gemini.NewChatModel(ctx, &gemini.Config{
			Client:    client,
			Model:     cfg.Model,
			MaxTokens: &maxTokens,
		})

	case ProviderAnthropic:
		claudeConfig := &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: DefaultMaxTokens,
		}
		if cfg.BaseURL != "" {
			baseURL := cfg.BaseURL
			claudeConfig.BaseURL = &baseURL
		}
		return claude.NewChatModel(ctx, claudeConfig)

	default:
		chatModelConfig := &openai.ChatModelConfig{
			Model:  cfg.Model,
			APIKey: cfg.APIKey,
		}
		if cfg.BaseURL != "" {
			chatModelConfig.BaseURL = cfg.BaseURL
		}
		return openai.NewChatModel(ctx, chatModelConfig)
	}
}

// NewWithModel creates an Extractor around an existing chat model.
func NewWithModel(chat ChatModel, cfg Config) *Extractor {
	e := &Extractor{
		chat:       chat,
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.BaseDelay,
		sleep:      sleepContext,
		now:        time.Now,
	}
	if e.model == "" {
		e.model = DefaultModel
	}
	if e.timeout <= 0 {
		e.timeout = DefaultTimeout
	}
	if e.maxRetries <= 0 {
		e.maxRetries = DefaultMaxRetries
	}
	if e.baseDelay <= 0 {
		e.baseDelay = BaseRetryDelay
	}
	return e
}

// ExtractFile reads the PDF at path and extracts a Document from it.
func (e *Extractor) ExtractFile(ctx context.Context, path string, maxBytes int64) (*types.Document, error) {
	text, err := ReadPaperText(path, maxBytes)
	if err != nil {
		return nil, err
	}
	return e.extract(ctx, filepath.Base(path), text)
}

// Extract structures paperText into a Document.
func (e *Extractor) Extract(ctx context.Context, paperText string) (*types.Document, error) {
	return e.extract(ctx, "", paperText)
}

func (e *Extractor) extract(ctx context.Context, fileName, paperText string) (*types.Document, error) {
	if strings.TrimSpace(paperText) == "" {
		return nil, types.NewAppError(types.ErrInvalidInput, "paper text is empty", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	messages := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(buildUserPrompt(userPromptInput{
			FileName:  fileName,
			Date:      e.now().Format("2006-01-02"),
			PaperText: paperText,
		})),
	}

	logger.Info("extracting document",
		logger.String("model", e.model),
		logger.String("file", fileName),
		logger.Int("chars", len(paperText)))

	reply, err := e.generateWithRetry(ctx, messages)
	if err != nil {
		return nil, err
	}

	doc, err := parseReply(reply)
	if err != nil {
		logger.Error("failed to parse model reply", err, logger.Int("replyLength", len(reply)))
		return nil, err
	}
	if doc.Date == "" {
		doc.Date = e.now().Format("2006-01-02")
	}
	doc = docsource.Normalize(doc)

	logger.Info("document extracted",
		logger.Int("subjects", len(doc.Subjects)),
		logger.Int("questions", doc.QuestionCount()))
	return doc, nil
}

// generateWithRetry calls the model, retrying rate limits and server errors
// with exponential backoff.
func (e *Extractor) generateWithRetry(ctx context.Context, messages []*schema.Message) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		logger.Debug("extraction attempt", logger.Int("attempt", attempt))

		resp, err := e.chat.Generate(ctx, messages)
		if err == nil && resp != nil {
			return resp.Content, nil
		}
		if err == nil {
			err = errors.New("model returned no message")
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", types.NewAppError(types.ErrExtract, "extraction cancelled", ctxErr)
		}

		lastErr = classifyError(err)
		logger.Warn("extraction attempt failed", logger.Int("attempt", attempt), logger.Err(lastErr))

		if !isRetryableAPIError(lastErr) {
			logger.Error("non-retryable extraction error", lastErr)
			return "", lastErr
		}

		if attempt < e.maxRetries {
			delay := e.baseDelay * time.Duration(1<<(attempt-1))
			logger.Debug("retrying after delay", logger.String("delay", delay.String()))
			if err := e.sleep(ctx, delay); err != nil {
				return "", types.NewAppError(types.ErrExtract, "extraction cancelled", err)
			}
		}
	}

	logger.Error("extraction failed after all retries", lastErr, logger.Int("maxRetries", e.maxRetries))
	return "", types.NewAppErrorWithDetails(
		types.CodeOf(lastErr),
		"extraction failed after multiple retries",
		fmt.Sprintf("attempted %d times", e.maxRetries),
		lastErr,
	)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// statusCodePattern finds the HTTP status in provider errors: the OpenAI
// client writes "status code: NNN", genai "Error NNN," and the Anthropic
// SDK `POST "url": NNN Reason`.
var statusCodePattern = regexp.MustCompile(`(?:status code: |Error |": )(\d{3})\b`)

// classifyError maps a chat-model error onto an AppError.
func classifyError(err error) error {
	msg := err.Error()
	lower := strings.ToLower(msg)

	status := 0
	if m := statusCodePattern.FindStringSubmatch(msg); m != nil {
		status, _ = strconv.Atoi(m[1])
	}

	switch {
	case status == 401 || status == 403 ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "unauthorized"):
		return types.NewAppErrorWithDetails(types.ErrAPIAuth, "API authentication failed",
			"invalid API key or unauthorized access", err)
	case status == 429 || strings.Contains(lower, "rate limit"):
		return types.NewAppErrorWithDetails(types.ErrAPIRateLimit, "API rate limit exceeded", msg, err)
	case status >= 500:
		return types.NewAppErrorWithDetails(types.ErrAPICall, "API server error",
			fmt.Sprintf("status %d: %s", status, msg), err)
	case status == 0 && isTransient(lower):
		return types.NewAppErrorWithDetails(types.ErrAPICall, "API connection error",
			"transient: "+msg, err)
	case status != 0:
		return types.NewAppErrorWithDetails(types.ErrAPICall, "API request failed",
			fmt.Sprintf("status %d: %s", status, msg), err)
	default:
		return types.NewAppErrorWithDetails(types.ErrAPICall, "API request failed", msg, err)
	}
}

func isTransient(lower string) bool {
	for _, s := range []string{"connection reset", "connection refused", "unexpected eof", "i/o timeout", "tls handshake timeout"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// isRetryableAPIError determines if an error should trigger a retry.
func isRetryableAPIError(err error) bool {
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		return false
	}
	switch appErr.Code {
	case types.ErrAPIRateLimit:
		return true
	case types.ErrAPICall:
		return strings.HasPrefix(appErr.Details, "status 5") || strings.HasPrefix(appErr.Details, "transient:")
	default:
		return false
	}
}

var codeFence = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\\n(.*?)\\n?```$")

// stripCodeFences removes a Markdown code fence wrapped around the reply.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if m := codeFence.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1])
	}
	return s
}

// parseReply decodes the model's JSON reply. Prose around the object is
// ignored.
func parseReply(reply string) (*types.Document, error) {
	body := stripCodeFences(reply)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end < start {
		return nil, types.NewAppError(types.ErrExtract, "model reply contains no JSON object", nil)
	}

	doc, err := docsource.Parse([]byte(body[start:end+1]), docsource.FormatJSON)
	if err != nil {
		return nil, types.NewAppError(types.ErrExtract, "model reply is not a valid document", err)
	}
	return doc, nil
}
