// Package config provides configuration management for the paper generator.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"solveflow/internal/logger"
	"solveflow/internal/types"
)

const (
	// DefaultConfigFileName is the default configuration file name
	DefaultConfigFileName = "solveflow-config.json"

	// EnvTypstBinary overrides the typst executable path
	EnvTypstBinary = "TYPST_BINARY"
	// EnvTypstTimeout is the compile timeout in seconds
	EnvTypstTimeout = "TYPST_TIMEOUT"
	// EnvWorkDir is the scratch directory for compiler runs
	EnvWorkDir = "SOLVEFLOW_WORK_DIR"
	// EnvLLMProvider selects the extraction backend
	EnvLLMProvider = "LLM_PROVIDER"
	// EnvLLMAPIKey is the API key of the extraction backend
	EnvLLMAPIKey = "LLM_API_KEY"
	// EnvLLMModel is the model name of the extraction backend
	EnvLLMModel = "LLM_MODEL"
	// EnvLLMBaseURL is the API base URL of the extraction backend
	EnvLLMBaseURL = "LLM_BASE_URL"

	// DefaultCompileTimeoutSec bounds a single typst run
	DefaultCompileTimeoutSec = 45
	// DefaultExtractTimeoutSec bounds one extraction including retries
	DefaultExtractTimeoutSec = 120
	// DefaultMaxRetries is the number of attempts for a retryable LLM call
	DefaultMaxRetries = 3
	// DefaultMaxUploadBytes is the largest paper accepted for extraction
	DefaultMaxUploadBytes = 50 * 1024 * 1024
	// DefaultLLMProvider is used when no provider is configured
	DefaultLLMProvider = "openai"
	// DefaultLLMModel is the model of the default provider
	DefaultLLMModel = "gpt-4o"
	// DefaultLLMBaseURL is the OpenAI API base URL
	DefaultLLMBaseURL = "https://api.openai.com/v1"
)

// defaultModels holds the model used per provider when none is configured.
var defaultModels = map[string]string{
	"openai":    DefaultLLMModel,
	"gemini":    "gemini-2.0-flash",
	"anthropic": "claude-3-5-haiku-20241022",
}

// ConfigManager manages application configuration
type ConfigManager struct {
	configPath string
	config     *types.Config
}

// NewConfigManager creates a new ConfigManager with the specified config path.
// If configPath is empty, it uses the default path in user's home directory.
func NewConfigManager(configPath string) (*ConfigManager, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			logger.Error("failed to get user home directory", err)
			return nil, types.NewAppError(types.ErrConfig, "failed to get user home directory", err)
		}
		configPath = filepath.Join(homeDir, ".config", "solveflow", DefaultConfigFileName)
	}

	logger.Debug("ConfigManager initialized", logger.String("configPath", configPath))
	return &ConfigManager{
		configPath: configPath,
		config:     defaultConfig(),
	}, nil
}

// defaultConfig returns a Config with default values. Settings that have an
// environment variable stay empty so the getters can fall back to it.
func defaultConfig() *types.Config {
	return &types.Config{
		ExtractTimeoutSec: DefaultExtractTimeoutSec,
		MaxRetries:        DefaultMaxRetries,
		MaxUploadBytes:    DefaultMaxUploadBytes,
	}
}

// Load loads configuration from the config file.
// A missing or malformed file leaves the defaults in place.
func (m *ConfigManager) Load() error {
	logger.Debug("loading configuration", logger.String("path", m.configPath))

	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Debug("config file not found, using defaults", logger.String("path", m.configPath))
			m.config = defaultConfig()
		} else {
			logger.Error("failed to read config file", err, logger.String("path", m.configPath))
			return types.NewAppError(types.ErrConfig, "failed to read config file", err)
		}
	} else {
		config := &types.Config{}
		if err := json.Unmarshal(data, config); err != nil {
			logger.Warn("invalid config file format, using defaults", logger.String("path", m.configPath), logger.Err(err))
			m.config = defaultConfig()
		} else {
			logger.Info("configuration loaded successfully",
				logger.String("path", m.configPath),
				logger.Int("apiKeyLength", len(config.LLMAPIKey)),
				logger.String("provider", config.LLMProvider),
				logger.String("model", config.LLMModel))
			m.config = config
		}
	}

	applyDefaults(m.config)
	return nil
}

func applyDefaults(c *types.Config) {
	if c.ExtractTimeoutSec <= 0 {
		c.ExtractTimeoutSec = DefaultExtractTimeoutSec
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.MaxUploadBytes <= 0 {
		c.MaxUploadBytes = DefaultMaxUploadBytes
	}
}

// Save saves the current configuration to the config file.
func (m *ConfigManager) Save() error {
	logger.Debug("saving configuration", logger.String("path", m.configPath))

	dir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.Error("failed to create config directory", err, logger.String("dir", dir))
		return types.NewAppError(types.ErrConfig, "failed to create config directory", err)
	}

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		logger.Error("failed to marshal config", err)
		return types.NewAppError(types.ErrConfig, "failed to marshal config", err)
	}

	// The file may hold an API key.
	if err := os.WriteFile(m.configPath, data, 0600); err != nil {
		logger.Error("failed to write config file", err, logger.String("path", m.configPath))
		return types.NewAppError(types.ErrConfig, "failed to write config file", err)
	}

	logger.Info("configuration saved successfully", logger.String("path", m.configPath))
	return nil
}

// GetConfig returns the current configuration.
func (m *ConfigManager) GetConfig() *types.Config {
	if m.config == nil {
		return defaultConfig()
	}
	return m.config
}

// SetConfig sets the entire configuration.
func (m *ConfigManager) SetConfig(config *types.Config) {
	m.config = config
}

// GetConfigPath returns the path to the config file.
func (m *ConfigManager) GetConfigPath() string {
	return m.configPath
}

// stringSetting returns the file value, then the environment variable, then
// fallback.
func stringSetting(fileValue, env, fallback string) string {
	if fileValue != "" {
		return fileValue
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return fallback
}

// GetTypstBinary returns the configured typst executable, or "" when the
// caller should resolve the bundled binary itself.
func (m *ConfigManager) GetTypstBinary() string {
	return stringSetting(m.GetConfig().TypstBinary, EnvTypstBinary, "")
}

// GetCompileTimeoutSec returns the typst timeout in seconds.
func (m *ConfigManager) GetCompileTimeoutSec() int {
	if c := m.GetConfig(); c.CompileTimeoutSec > 0 {
		return c.CompileTimeoutSec
	}
	if v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(EnvTypstTimeout))); err == nil && v > 0 {
		return v
	}
	return DefaultCompileTimeoutSec
}

// GetWorkDirectory returns the compiler scratch directory; "" means the
// system temp dir.
func (m *ConfigManager) GetWorkDirectory() string {
	return stringSetting(m.GetConfig().WorkDirectory, EnvWorkDir, "")
}

// GetLLMProvider returns the extraction provider name in lower case.
func (m *ConfigManager) GetLLMProvider() string {
	return strings.ToLower(stringSetting(m.GetConfig().LLMProvider, EnvLLMProvider, DefaultLLMProvider))
}

// GetAPIKey returns the LLM API key.
// It first checks the config file value, then falls back to the environment variable.
func (m *ConfigManager) GetAPIKey() string {
	return stringSetting(m.GetConfig().LLMAPIKey, EnvLLMAPIKey, "")
}

// SetAPIKey sets the LLM API key and saves the configuration.
func (m *ConfigManager) SetAPIKey(key string) error {
	logger.Info("setting API key")
	if m.config == nil {
		m.config = defaultConfig()
	}
	m.config.LLMAPIKey = key
	return m.Save()
}

// GetModel returns the LLM model to use, defaulting per provider.
func (m *ConfigManager) GetModel() string {
	return stringSetting(m.GetConfig().LLMModel, EnvLLMModel, defaultModels[m.GetLLMProvider()])
}

// GetBaseURL returns the LLM API base URL. Only the openai provider has a
// default; the others use their SDK's endpoint when this is empty.
func (m *ConfigManager) GetBaseURL() string {
	fallback := ""
	if m.GetLLMProvider() == DefaultLLMProvider {
		fallback = DefaultLLMBaseURL
	}
	return stringSetting(m.GetConfig().LLMBaseURL, EnvLLMBaseURL, fallback)
}

// GetExtractTimeoutSec returns the extraction deadline in seconds.
func (m *ConfigManager) GetExtractTimeoutSec() int {
	if c := m.GetConfig(); c.ExtractTimeoutSec > 0 {
		return c.ExtractTimeoutSec
	}
	return DefaultExtractTimeoutSec
}

// GetMaxRetries returns the number of attempts for a retryable LLM call.
func (m *ConfigManager) GetMaxRetries() int {
	if c := m.GetConfig(); c.MaxRetries > 0 {
		return c.MaxRetries
	}
	return DefaultMaxRetries
}

// GetMaxUploadBytes returns the largest accepted paper size.
func (m *ConfigManager) GetMaxUploadBytes() int64 {
	if c := m.GetConfig(); c.MaxUploadBytes > 0 {
		return c.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

// UpdateConfig updates the LLM settings with non-empty values and saves.
func (m *ConfigManager) UpdateConfig(provider, apiKey, baseURL, model, typstBinary, workDir string) error {
	logger.Info("updating configuration")
	if m.config == nil {
		m.config = defaultConfig()
	}

	if provider != "" {
		m.config.LLMProvider = provider
	}
	if apiKey != "" {
		m.config.LLMAPIKey = apiKey
	}
	if baseURL != "" {
		m.config.LLMBaseURL = baseURL
	}
	if model != "" {
		m.config.LLMModel = model
	}
	if typstBinary != "" {
		m.config.TypstBinary = typstBinary
	}
	if workDir != "" {
		m.config.WorkDirectory = workDir
	}

	return m.Save()
}
