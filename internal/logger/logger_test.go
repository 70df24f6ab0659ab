package logger

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T, level Level, maxSize int64) (*DefaultLogger, string) {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "test.log")

	logger, err := NewDefaultLogger(&Config{
		LogFilePath: logPath,
		MaxFileSize: maxSize,
		MaxBackups:  3,
		Level:       level,
	})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	return logger, logPath
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	return string(content)
}

func TestNewDefaultLogger(t *testing.T) {
	logger, logPath := newTestLogger(t, LevelDebug, 1024)
	defer logger.Close()

	if _, err := os.Stat(logPath); os.IsNotExist(err) {
		t.Error("Log file was not created")
	}
}

func TestLogLevels(t *testing.T) {
	logger, logPath := newTestLogger(t, LevelDebug, 1024*1024)

	logger.Debug("debug message", String("key", "value"))
	logger.Info("info message", Int("count", 42))
	logger.Warn("warn message", Bool("flag", true))
	logger.Error("error message", errors.New("test error"), Float64("value", 3.14))
	logger.Close()

	content := readLog(t, logPath)
	tests := []struct {
		level string
		msg   string
		field string
	}{
		{"DEBUG", "debug message", `"key": "value"`},
		{"INFO", "info message", `"count": 42`},
		{"WARN", "warn message", `"flag": true`},
		{"ERROR", "error message", `"error": "test error"`},
	}
	for _, tt := range tests {
		if !strings.Contains(content, tt.level) {
			t.Errorf("Log should contain %s level", tt.level)
		}
		if !strings.Contains(content, tt.msg) {
			t.Errorf("Log should contain %q", tt.msg)
		}
		if !strings.Contains(content, tt.field) {
			t.Errorf("Log should contain field %s, got:\n%s", tt.field, content)
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	logger, logPath := newTestLogger(t, LevelWarn, 1024*1024)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message", nil)
	logger.Close()

	content := readLog(t, logPath)
	if strings.Contains(content, "debug message") || strings.Contains(content, "info message") {
		t.Error("Entries below WARN should be filtered")
	}
	if !strings.Contains(content, "warn message") || !strings.Contains(content, "error message") {
		t.Error("WARN and ERROR entries should be written")
	}
}

func TestSetLevel(t *testing.T) {
	logger, logPath := newTestLogger(t, LevelInfo, 1024*1024)

	logger.Debug("hidden debug")
	logger.SetLevel(LevelDebug)
	logger.Debug("visible debug")
	logger.SetLevel(LevelError)
	logger.Warn("hidden warn")
	logger.Close()

	content := readLog(t, logPath)
	if strings.Contains(content, "hidden debug") || strings.Contains(content, "hidden warn") {
		t.Error("Filtered entries were written")
	}
	if !strings.Contains(content, "visible debug") {
		t.Error("Debug entry should be written after SetLevel(LevelDebug)")
	}
}

func TestLogRotation(t *testing.T) {
	logger, logPath := newTestLogger(t, LevelInfo, 512)

	for i := 0; i < 50; i++ {
		logger.Info("rotation test message with some padding to fill the file", Int("iteration", i))
	}
	logger.Close()

	if _, err := os.Stat(logPath + ".1"); os.IsNotExist(err) {
		t.Error("Rotated backup file should exist")
	}
	if _, err := os.Stat(logPath + ".5"); !os.IsNotExist(err) {
		t.Error("Backups beyond MaxBackups should be removed")
	}

	info, err := os.Stat(logPath)
	if err != nil {
		t.Fatalf("Current log file missing: %v", err)
	}
	if info.Size() > 512 {
		t.Errorf("Current log file exceeds max size: %d", info.Size())
	}
}

func TestRedactedFields(t *testing.T) {
	logger, logPath := newTestLogger(t, LevelInfo, 1024*1024)

	logger.Info("config loaded", String("llm_api_key", "sk-secret-value"), String("model", "gpt-4o"))
	logger.Close()

	content := readLog(t, logPath)
	if strings.Contains(content, "sk-secret-value") {
		t.Error("API key should be redacted")
	}
	if !strings.Contains(content, "[REDACTED]") || !strings.Contains(content, "gpt-4o") {
		t.Errorf("Unexpected log content:\n%s", content)
	}
}

func TestFieldTypes(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		key   string
		value interface{}
	}{
		{"String", String("s", "v"), "s", "v"},
		{"Int", Int("i", 7), "i", 7},
		{"Int64", Int64("i64", 9), "i64", int64(9)},
		{"Float64", Float64("f", 1.5), "f", 1.5},
		{"Bool", Bool("b", true), "b", true},
		{"Err", Err(errors.New("boom")), "error", "boom"},
		{"Any", Any("a", []int{1}), "a", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.field.Key != tt.key {
				t.Errorf("Key = %q, want %q", tt.field.Key, tt.key)
			}
			if tt.value != nil && tt.field.Value != tt.value {
				t.Errorf("Value = %v, want %v", tt.field.Value, tt.value)
			}
		})
	}
}

func TestErrFieldWithNil(t *testing.T) {
	f := Err(nil)
	if f.Key != "error" || f.Value != nil {
		t.Errorf("Err(nil) = %+v", f)
	}
}

func TestGlobalLogger(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "global.log")

	if err := Init(&Config{LogFilePath: logPath, MaxFileSize: 1024 * 1024, MaxBackups: 1, Level: LevelDebug}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	Debug("global debug")
	Info("global info")
	Warn("global warn")
	Error("global error", errors.New("e"))

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	content := readLog(t, logPath)
	for _, msg := range []string{"global debug", "global info", "global warn", "global error"} {
		if !strings.Contains(content, msg) {
			t.Errorf("Global log should contain %q", msg)
		}
	}

	if _, ok := GetLogger().(*noopLogger); !ok {
		t.Error("GetLogger should return a no-op logger after Close")
	}
}

func TestNoopLogger(t *testing.T) {
	l := &noopLogger{}
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x", errors.New("x"))
	l.SetLevel(LevelError)
	if err := l.Close(); err != nil {
		t.Errorf("noop Close returned %v", err)
	}
}

func TestDefaultConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c := DefaultConfig()
	want := filepath.Join(home, ".config", "solveflow", "logs", "solveflow.log")
	if c.LogFilePath != want {
		t.Errorf("LogFilePath = %q, want %q", c.LogFilePath, want)
	}
	if !filepath.IsAbs(c.LogFilePath) {
		t.Errorf("LogFilePath %q should be absolute", c.LogFilePath)
	}
	if c.MaxFileSize != 10*1024*1024 || c.MaxBackups != 5 || c.Level != LevelInfo || c.EnableConsole {
		t.Errorf("unexpected defaults: %+v", c)
	}
}

func TestLevelString(t *testing.T) {
	tests := map[Level]string{
		LevelDebug: "DEBUG",
		LevelInfo:  "INFO",
		LevelWarn:  "WARN",
		LevelError: "ERROR",
		Level(99):  "UNKNOWN",
	}
	for level, want := range tests {
		if got := level.String(); got != want {
			t.Errorf("Level(%d).String() = %q, want %q", level, got, want)
		}
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{" error ", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogDirectoryCreation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "test.log")

	logger, err := NewDefaultLogger(&Config{LogFilePath: logPath, MaxFileSize: 1024, MaxBackups: 1})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(filepath.Dir(logPath)); err != nil {
		t.Errorf("Log directory was not created: %v", err)
	}
}
