package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solveflow/internal/fixture"
	"solveflow/internal/types"
)

type fakeModel struct {
	replies []string
	errs    []error
	calls   int
	last    []*schema.Message
}

func (f *fakeModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	i := f.calls
	f.calls++
	f.last = input
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	} else if len(f.replies) > 0 {
		reply = f.replies[len(f.replies)-1]
	}
	return schema.AssistantMessage(reply, nil), nil
}

func newTestExtractor(m ChatModel) (*Extractor, *[]time.Duration) {
	e := NewWithModel(m, Config{})
	var delays []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return ctx.Err()
	}
	e.now = func() time.Time { return time.Date(2026, 2, 24, 9, 0, 0, 0, time.UTC) }
	return e, &delays
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "mock", APIKey: "k"})
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
	assert.Contains(t, err.Error(), "openai, gemini, anthropic")

	for _, provider := range Providers {
		_, err = New(context.Background(), Config{Provider: provider})
		assert.Equal(t, types.ErrConfig, types.CodeOf(err), provider)
	}
}

func TestNewSelectsProvider(t *testing.T) {
	tests := []struct {
		provider string
		model    string
	}{
		{"", DefaultModel},
		{"OpenAI", DefaultModel},
		{"gemini", "gemini-2.0-flash"},
		{" Anthropic ", "claude-3-5-haiku-20241022"},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			e, err := New(context.Background(), Config{Provider: tt.provider, APIKey: "test-key"})
			require.NoError(t, err)
			assert.Equal(t, tt.model, e.model)
		})
	}

	e, err := New(context.Background(), Config{Provider: "anthropic", APIKey: "k", Model: "claude-sonnet-4-0", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-0", e.model)
}

func TestSupportedProvider(t *testing.T) {
	assert.True(t, SupportedProvider(""))
	assert.True(t, SupportedProvider("GEMINI"))
	assert.True(t, SupportedProvider("anthropic"))
	assert.False(t, SupportedProvider("mock"))
	assert.Equal(t, ProviderOpenAI, NormalizeProvider("  "))
}

func TestNewOpenAI(t *testing.T) {
	e, err := New(context.Background(), Config{APIKey: "sk-test", BaseURL: "http://127.0.0.1:1/v1"})
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, e.model)
	assert.Equal(t, DefaultMaxRetries, e.maxRetries)
	assert.Equal(t, BaseRetryDelay, e.baseDelay)
}

func TestExtractDemo(t *testing.T) {
	m := &fakeModel{replies: []string{"```json\n" + string(fixture.DemoJSON()) + "\n```"}}
	e, delays := newTestExtractor(m)

	doc, err := e.Extract(context.Background(), "Q1. A charge q is placed...")
	require.NoError(t, err)

	assert.Equal(t, 1, m.calls)
	assert.Empty(t, *delays)
	assert.Equal(t, fixture.Demo().QuestionCount(), doc.QuestionCount())
	assert.Equal(t, "DPP #1 — Mixed Revision", doc.Title)

	require.Len(t, m.last, 2)
	assert.Equal(t, schema.System, m.last[0].Role)
	assert.Contains(t, m.last[0].Content, `"correct": "B"`)
	assert.Contains(t, m.last[1].Content, "Set 2026-02-24 as the DPP date")
	assert.Contains(t, m.last[1].Content, "Q1. A charge q is placed...")
}

func TestExtractDefaultsDate(t *testing.T) {
	reply := `Here you go: {"title":"T","subjects":[{"name":"Physics","color":"cyan","questions":[]}]} hope it helps`
	e, _ := newTestExtractor(&fakeModel{replies: []string{reply}})

	doc, err := e.Extract(context.Background(), "paper")
	require.NoError(t, err)
	assert.Equal(t, "2026-02-24", doc.Date)
	assert.Equal(t, "T", doc.Title)
}

func TestExtractBadReply(t *testing.T) {
	for _, reply := range []string{"", "sorry, I cannot help", `{"title": 5}`, `{"subjects": [}`} {
		e, _ := newTestExtractor(&fakeModel{replies: []string{reply}})
		_, err := e.Extract(context.Background(), "paper")
		assert.Equal(t, types.ErrExtract, types.CodeOf(err), reply)
	}
}

func TestExtractEmptyText(t *testing.T) {
	m := &fakeModel{}
	e, _ := newTestExtractor(m)
	_, err := e.Extract(context.Background(), "  \n ")
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
	assert.Zero(t, m.calls)
}

func TestRetryOnServerErrors(t *testing.T) {
	m := &fakeModel{
		errs: []error{
			errors.New("error, status code: 503, message: overloaded"),
			errors.New("error, status code: 429, message: Rate limit reached"),
		},
		replies: []string{"", "", string(fixture.DemoJSON())},
	}
	e, delays := newTestExtractor(m)

	doc, err := e.Extract(context.Background(), "paper")
	require.NoError(t, err)
	assert.NotNil(t, doc)
	assert.Equal(t, 3, m.calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, *delays)
}

func TestRetryGivesUp(t *testing.T) {
	m := &fakeModel{errs: []error{
		errors.New("read tcp: connection reset by peer"),
		errors.New("read tcp: connection reset by peer"),
		errors.New("read tcp: connection reset by peer"),
	}}
	e, delays := newTestExtractor(m)

	_, err := e.Extract(context.Background(), "paper")
	require.Error(t, err)
	assert.Equal(t, types.ErrAPICall, types.CodeOf(err))
	assert.Contains(t, err.Error(), "attempted 3 times")
	assert.Equal(t, 3, m.calls)
	assert.Len(t, *delays, 2)
}

func TestAuthErrorIsFatal(t *testing.T) {
	m := &fakeModel{errs: []error{errors.New("error, status code: 401, message: Incorrect API key provided")}}
	e, delays := newTestExtractor(m)

	_, err := e.Extract(context.Background(), "paper")
	assert.Equal(t, types.ErrAPIAuth, types.CodeOf(err))
	assert.Equal(t, 1, m.calls)
	assert.Empty(t, *delays)
}

func TestCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &fakeModel{errs: []error{context.Canceled}}
	e, _ := newTestExtractor(m)

	_, err := e.Extract(ctx, "paper")
	assert.Equal(t, types.ErrExtract, types.CodeOf(err))
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 1, m.calls)
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		msg       string
		code      types.ErrorCode
		retryable bool
	}{
		{"error, status code: 401, message: bad key", types.ErrAPIAuth, false},
		{"error, status code: 403, message: forbidden", types.ErrAPIAuth, false},
		{"Invalid API key", types.ErrAPIAuth, false},
		{"error, status code: 429, message: slow down", types.ErrAPIRateLimit, true},
		{"you hit the rate limit", types.ErrAPIRateLimit, true},
		{"error, status code: 500, message: boom", types.ErrAPICall, true},
		{"error, status code: 502, message: bad gateway", types.ErrAPICall, true},
		{"error, status code: 400, message: bad request", types.ErrAPICall, false},
		{"dial tcp 127.0.0.1:1: connect: connection refused", types.ErrAPICall, true},
		{"unexpected EOF", types.ErrAPICall, true},
		{"something odd", types.ErrAPICall, false},
		{"Error 503, Message: The model is overloaded., Status: UNAVAILABLE, Details: []", types.ErrAPICall, true},
		{"Error 429, Message: Resource has been exhausted, Status: RESOURCE_EXHAUSTED, Details: []", types.ErrAPIRateLimit, true},
		{`POST "https://api.anthropic.com/v1/messages": 529 <nil> {"type":"error"}`, types.ErrAPICall, true},
		{`POST "https://api.anthropic.com/v1/messages": 401 Unauthorized {"type":"error"}`, types.ErrAPIAuth, false},
	}
	for _, tt := range tests {
		err := classifyError(errors.New(tt.msg))
		assert.Equal(t, tt.code, types.CodeOf(err), tt.msg)
		assert.Equal(t, tt.retryable, isRetryableAPIError(err), tt.msg)
	}
	assert.False(t, isRetryableAPIError(errors.New("plain")))
}

func TestStripCodeFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripCodeFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, stripCodeFences("  {\"a\":1}  "))
}

func TestBuildUserPrompt(t *testing.T) {
	p := buildUserPrompt(userPromptInput{FileName: "mock.pdf", Date: "2026-01-01", PaperText: "TEXT"})
	assert.Contains(t, p, `question paper "mock.pdf" below`)
	assert.Contains(t, p, "--- BEGIN PAPER ---\nTEXT\n--- END PAPER ---")

	p = buildUserPrompt(userPromptInput{PaperText: "TEXT"})
	assert.Contains(t, p, "question paper below")
}

func TestReadPaperTextRejects(t *testing.T) {
	dir := t.TempDir()

	notPDF := filepath.Join(dir, "paper.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("hello"), 0644))
	_, err := ReadPaperText(notPDF, 0)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))

	_, err = ReadPaperText(filepath.Join(dir, "missing.pdf"), 0)
	assert.Equal(t, types.ErrFileNotFound, types.CodeOf(err))

	fake := filepath.Join(dir, "fake.pdf")
	require.NoError(t, os.WriteFile(fake, []byte("<html>not a pdf</html>"), 0644))
	_, err = ReadPaperText(fake, 0)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))

	big := filepath.Join(dir, "big.pdf")
	require.NoError(t, os.WriteFile(big, append([]byte("%PDF-1.4\n"), make([]byte, 100)...), 0644))
	_, err = ReadPaperText(big, 10)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
	assert.Contains(t, err.Error(), "byte limit")

	short := filepath.Join(dir, "short.pdf")
	require.NoError(t, os.WriteFile(short, []byte("%P"), 0644))
	_, err = ReadPaperText(short, 0)
	assert.Equal(t, types.ErrInvalidInput, types.CodeOf(err))
}

func TestExtractFileReadError(t *testing.T) {
	m := &fakeModel{}
	e, _ := newTestExtractor(m)
	_, err := e.ExtractFile(context.Background(), filepath.Join(t.TempDir(), "none.pdf"), 0)
	assert.Equal(t, types.ErrFileNotFound, types.CodeOf(err))
	assert.Zero(t, m.calls)
}
