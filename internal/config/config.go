package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the scribe configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Checking CheckingConfig `yaml:"checking"`
	Check    CheckConfig    `yaml:"check"`
	Chunk    ChunkConfig    `yaml:"chunk"`
	History  HistoryConfig  `yaml:"history"`
	Server   ServerConfig   `yaml:"server"`
	Cache    CacheConfig    `yaml:"cache"`
	Privacy  PrivacyConfig  `yaml:"privacy"`
	Log      LogConfig      `yaml:"log"`
	Format   string         `yaml:"format"`
}

// LLMConfig selects and authenticates the chat-completion provider.
// Empty credentials fall back to the provider's conventional environment
// variables when the provider is constructed.
type LLMConfig struct {
	Provider      string `yaml:"provider"`
	Model         string `yaml:"model,omitempty"`
	BaseURL       string `yaml:"baseURL,omitempty"`
	APIKey        string `yaml:"apiKey,omitempty"`
	ServiceKey    string `yaml:"serviceKey,omitempty"`
	ResourceGroup string `yaml:"resourceGroup,omitempty"`
}

// CheckingConfig points at the native checking service.
type CheckingConfig struct {
	BaseURL         string `yaml:"baseURL,omitempty"`
	Token           string `yaml:"token,omitempty"`
	ClientSignature string `yaml:"clientSignature,omitempty"`
	ClientVersion   string `yaml:"clientVersion,omitempty"`
}

// CheckConfig holds per-check defaults and limits.
type CheckConfig struct {
	Timeout          time.Duration `yaml:"timeout"`
	PollInterval     time.Duration `yaml:"pollInterval"`
	MaxFileSize      int64         `yaml:"maxFileSize"`
	SupportedFormats []string      `yaml:"supportedFormats"`
	Language         string        `yaml:"language"`
	ProfileID        string        `yaml:"profile,omitempty"`
}

// ChunkConfig controls how long documents are split for LLM checks.
type ChunkConfig struct {
	MaxChunkSize       int  `yaml:"maxChunkSize"`
	OverlapSize        int  `yaml:"overlapSize"`
	PreserveBoundaries bool `yaml:"preserveBoundaries"`
	Concurrency        int  `yaml:"concurrency"`
}

// HistoryConfig locates the history database.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
	Limit   int    `yaml:"limit"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// CacheConfig controls caching of LLM responses.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir,omitempty"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// PrivacyConfig controls redaction of content sent to LLM providers.
type PrivacyConfig struct {
	RedactSecrets bool     `yaml:"redactSecrets"`
	RedactPaths   []string `yaml:"redactPaths"`
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider: "sap-ai-core",
		},
		Checking: CheckingConfig{
			ClientSignature: "scribe",
			ClientVersion:   "1.0.0",
		},
		Check: CheckConfig{
			Timeout:          5 * time.Minute,
			PollInterval:     2 * time.Second,
			MaxFileSize:      10 * 1024 * 1024,
			SupportedFormats: []string{"txt", "md", "html", "xml", "json", "docx", "pdf"},
			Language:         "en",
		},
		Chunk: ChunkConfig{
			MaxChunkSize:       2000,
			OverlapSize:        200,
			PreserveBoundaries: true,
			Concurrency:        4,
		},
		History: HistoryConfig{
			Enabled: true,
			Limit:   1000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Cache: CacheConfig{
			Enabled:    false,
			TTLSeconds: 86400,
		},
		Privacy: PrivacyConfig{
			RedactSecrets: false,
			RedactPaths:   []string{"**/.env", "**/*.pem", "**/*.key", "**/*secrets*"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Format: "text",
	}
}

// ConfigDir returns the platform-appropriate config directory for scribe.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "scribe"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "scribe"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "scribe"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "scribe"), nil
	default:
		return filepath.Join(home, ".config", "scribe"), nil
	}
}

// DataDir returns the platform-appropriate directory for the history database.
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "scribe"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "scribe"), nil
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, "scribe"), nil
		}
		return filepath.Join(home, "AppData", "Local", "scribe"), nil
	default:
		return filepath.Join(home, ".local", "share", "scribe"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// HistoryPath returns the configured history database path, or the default
// location under DataDir.
func (c Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// LoadFile returns the defaults overlaid with the config file. A missing
// file is not an error.
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
func Load(overrides map[string]string) (Config, error) {
	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	mergeProviderEnv(&cfg.LLM)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func mergeEnv(cfg *Config) error {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		cfg.LLM.Provider = v
	}
	if v := os.Getenv("SCRIBE_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("ACROLINX_BASE_URL"); v != "" {
		cfg.Checking.BaseURL = v
	}
	if v := os.Getenv("ACROLINX_API_TOKEN"); v != "" {
		cfg.Checking.Token = v
	}
	if v := os.Getenv("ACROLINX_CLIENT_SIGNATURE"); v != "" {
		cfg.Checking.ClientSignature = v
	}
	if v := os.Getenv("ACROLINX_CLIENT_VERSION"); v != "" {
		cfg.Checking.ClientVersion = v
	}
	if v := os.Getenv("SCRIBE_FORMAT"); v != "" {
		cfg.Format = v
	}
	if v := os.Getenv("SCRIBE_HISTORY_PATH"); v != "" {
		cfg.History.Path = v
	}
	if v := os.Getenv("SCRIBE_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("SCRIBE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SCRIBE_CHECK_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SCRIBE_CHECK_TIMEOUT: %w", err)
		}
		cfg.Check.Timeout = d
	}
	if v := os.Getenv("SCRIBE_MAX_CHUNK_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCRIBE_MAX_CHUNK_SIZE: %w", err)
		}
		cfg.Chunk.MaxChunkSize = n
	}
	return nil
}

// mergeProviderEnv applies the selected provider's conventional credential
// variables. It runs after the overrides because --provider decides which
// vendor's variables apply.
func mergeProviderEnv(llm *LLMConfig) {
	set := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	switch strings.ToLower(llm.Provider) {
	case "", "sap-ai-core", "sap":
		set(&llm.ServiceKey, "AICORE_SERVICE_KEY")
		set(&llm.ResourceGroup, "AICORE_RESOURCE_GROUP")
	case "openai", "openrouter":
		set(&llm.APIKey, "OPENAI_API_KEY")
		set(&llm.BaseURL, "OPENAI_BASE_URL")
	case "ollama", "lmstudio":
		set(&llm.APIKey, "SCRIBE_OLLAMA_API_KEY")
		set(&llm.BaseURL, "OLLAMA_HOST")
	case "anthropic":
		set(&llm.APIKey, "ANTHROPIC_API_KEY")
	case "gemini", "google":
		set(&llm.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	}
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	if overrides == nil {
		return nil
	}
	if v, ok := overrides["provider"]; ok && v != "" {
		cfg.LLM.Provider = v
	}
	if v, ok := overrides["model"]; ok && v != "" {
		cfg.LLM.Model = v
	}
	if v, ok := overrides["format"]; ok && v != "" {
		cfg.Format = v
	}
	if v, ok := overrides["language"]; ok && v != "" {
		cfg.Check.Language = v
	}
	if v, ok := overrides["profile"]; ok && v != "" {
		cfg.Check.ProfileID = v
	}
	if v, ok := overrides["addr"]; ok && v != "" {
		cfg.Server.Addr = v
	}
	if v, ok := overrides["historyPath"]; ok && v != "" {
		cfg.History.Path = v
	}
	if v, ok := overrides["logLevel"]; ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := overrides["timeout"]; ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Check.Timeout = d
	}
	return nil
}

// Validate reports configuration values that would make checks fail later.
func (c Config) Validate() error {
	var errs []error
	switch c.Format {
	case "text", "json", "markdown", "sarif":
	default:
		errs = append(errs, fmt.Errorf("format must be one of text, json, markdown, sarif; got %q", c.Format))
	}
	if c.Check.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("check.timeout must be positive"))
	}
	if c.Check.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("check.pollInterval must be positive"))
	}
	if c.Chunk.MaxChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk.maxChunkSize must be positive"))
	}
	if c.Chunk.OverlapSize < 0 || c.Chunk.OverlapSize >= c.Chunk.MaxChunkSize {
		errs = append(errs, fmt.Errorf("chunk.overlapSize must be in [0, maxChunkSize)"))
	}
	return errors.Join(errs...)
}

// SetField sets a single config field by key name. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "llm.provider":
		cfg.LLM.Provider = value
	case "llm.model":
		cfg.LLM.Model = value
	case "llm.baseURL":
		cfg.LLM.BaseURL = value
	case "llm.apiKey":
		cfg.LLM.APIKey = value
	case "llm.serviceKey":
		cfg.LLM.ServiceKey = value
	case "llm.resourceGroup":
		cfg.LLM.ResourceGroup = value
	case "checking.baseURL":
		cfg.Checking.BaseURL = value
	case "checking.token":
		cfg.Checking.Token = value
	case "checking.clientSignature":
		cfg.Checking.ClientSignature = value
	case "checking.clientVersion":
		cfg.Checking.ClientVersion = value
	case "check.timeout":
		return setDuration(&cfg.Check.Timeout, key, value)
	case "check.pollInterval":
		return setDuration(&cfg.Check.PollInterval, key, value)
	case "check.language":
		cfg.Check.Language = value
	case "check.profile":
		cfg.Check.ProfileID = value
	case "chunk.maxChunkSize":
		return setInt(&cfg.Chunk.MaxChunkSize, key, value)
	case "chunk.overlapSize":
		return setInt(&cfg.Chunk.OverlapSize, key, value)
	case "chunk.concurrency":
		return setInt(&cfg.Chunk.Concurrency, key, value)
	case "chunk.preserveBoundaries":
		return setBool(&cfg.Chunk.PreserveBoundaries, key, value)
	case "history.enabled":
		return setBool(&cfg.History.Enabled, key, value)
	case "history.path":
		cfg.History.Path = value
	case "history.limit":
		return setInt(&cfg.History.Limit, key, value)
	case "server.addr":
		cfg.Server.Addr = value
	case "cache.enabled":
		return setBool(&cfg.Cache.Enabled, key, value)
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.ttlSeconds":
		return setInt(&cfg.Cache.TTLSeconds, key, value)
	case "privacy.redactSecrets":
		return setBool(&cfg.Privacy.RedactSecrets, key, value)
	case "log.level":
		cfg.Log.Level = value
	case "log.format":
		cfg.Log.Format = value
	case "format":
		cfg.Format = value
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}

func setInt(dst *int, key, value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key, value string) error {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be true or false: %w", key, err)
	}
	*dst = b
	return nil
}

func setDuration(dst *time.Duration, key, value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a duration like 30s or 5m: %w", key, err)
	}
	*dst = d
	return nil
}
