// Package types defines core data types and enums for the paper generator.
package types

import "errors"

// Config holds application settings loaded by the config package.
type Config struct {
	TypstBinary       string `json:"typst_binary"`        // path to the typst executable
	CompileTimeoutSec int    `json:"compile_timeout_sec"` // hard limit for one typst run
	WorkDirectory     string `json:"work_directory"`      // scratch dir for .typ/.pdf files
	LLMProvider       string `json:"llm_provider"`
	LLMAPIKey         string `json:"llm_api_key"`
	LLMModel          string `json:"llm_model"`
	LLMBaseURL        string `json:"llm_base_url"`
	ExtractTimeoutSec int    `json:"extract_timeout_sec"`
	MaxRetries        int    `json:"max_retries"`
	MaxUploadBytes    int64  `json:"max_upload_bytes"`
}

// OptionKey labels one of the four answer options.
type OptionKey string

const (
	OptionA OptionKey = "A"
	OptionB OptionKey = "B"
	OptionC OptionKey = "C"
	OptionD OptionKey = "D"
)

// OptionKeys is the fixed option alphabet in display order.
var OptionKeys = []OptionKey{OptionA, OptionB, OptionC, OptionD}

// Valid reports whether k belongs to the option alphabet.
func (k OptionKey) Valid() bool {
	switch k {
	case OptionA, OptionB, OptionC, OptionD:
		return true
	}
	return false
}

// Option is a labelled answer choice. Text may contain inline math.
type Option struct {
	Key  OptionKey `json:"key" yaml:"key"`
	Text string    `json:"text" yaml:"text"`
}

// Question is one MCQ item with its worked solution.
type Question struct {
	ID       string    `json:"id" yaml:"id"`
	Topic    string    `json:"topic" yaml:"topic"`
	Text     string    `json:"text" yaml:"text"`
	Options  []Option  `json:"options" yaml:"options"`
	Correct  OptionKey `json:"correct" yaml:"correct"`
	Marks    int       `json:"marks" yaml:"marks"`
	Solution string    `json:"solution" yaml:"solution"`
}

// Subject groups questions under a shared accent colour and icon.
type Subject struct {
	Name      string     `json:"name" yaml:"name"`
	Color     string     `json:"color" yaml:"color"`
	Icon      string     `json:"icon" yaml:"icon"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// TotalMarks sums the marks of every question in the subject.
func (s Subject) TotalMarks() int {
	total := 0
	for _, q := range s.Questions {
		total += q.Marks
	}
	return total
}

// Document is a daily practice paper: metadata plus subjects in print order.
type Document struct {
	Title        string    `json:"title" yaml:"title"`
	Subtitle     string    `json:"subtitle" yaml:"subtitle"`
	Target       string    `json:"target" yaml:"target"`
	Class        string    `json:"class" yaml:"class"`
	Date         string    `json:"date" yaml:"date"`
	Instructions string    `json:"instructions" yaml:"instructions"`
	Subjects     []Subject `json:"subjects" yaml:"subjects"`
}

// QuestionCount returns the number of questions across all subjects.
func (d Document) QuestionCount() int {
	n := 0
	for _, s := range d.Subjects {
		n += len(s.Questions)
	}
	return n
}

// TotalMarks returns the marks across all subjects.
func (d Document) TotalMarks() int {
	n := 0
	for _, s := range d.Subjects {
		n += s.TotalMarks()
	}
	return n
}

// CompileResult is the outcome of one typst run
type CompileResult struct {
	Success   bool   `json:"success"`
	PDF       []byte `json:"-"`
	PageCount int    `json:"page_count"`
	Log       string `json:"log"`
	ErrorMsg  string `json:"error_msg,omitempty"`
}

// ErrorCode classifies an AppError
type ErrorCode string

const (
	ErrInvalidInput   ErrorCode = "INVALID_INPUT"
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"
	ErrConfig         ErrorCode = "CONFIG_ERROR"
	ErrCompile        ErrorCode = "COMPILE_ERROR"
	ErrCompileTimeout ErrorCode = "COMPILE_TIMEOUT"
	ErrAPICall        ErrorCode = "API_CALL_ERROR"
	ErrAPIRateLimit   ErrorCode = "API_RATE_LIMIT"
	ErrAPIAuth        ErrorCode = "API_AUTH_ERROR"
	ErrExtract        ErrorCode = "EXTRACT_ERROR"
	ErrInternal       ErrorCode = "INTERNAL_ERROR"
)

// AppError is the error type returned across package boundaries
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Cause   error     `json:"-"`
}

// Error implements the error interface for AppError
func (e *AppError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}

// Unwrap returns the underlying cause of the error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new AppError with the given code, message, and optional cause
func NewAppError(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAppErrorWithDetails creates a new AppError with details
func NewAppErrorWithDetails(code ErrorCode, message, details string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Details: details,
		Cause:   cause,
	}
}

// CodeOf returns the ErrorCode of err if it is an *AppError, or "" otherwise.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
