package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.LLM.Provider != "sap-ai-core" {
		t.Errorf("Default provider = %q, want %q", cfg.LLM.Provider, "sap-ai-core")
	}
	if cfg.Format != "text" {
		t.Errorf("Default format = %q, want %q", cfg.Format, "text")
	}
	if cfg.Check.Timeout != 5*time.Minute {
		t.Errorf("Default timeout = %v, want 5m", cfg.Check.Timeout)
	}
	if cfg.Check.PollInterval != 2*time.Second {
		t.Errorf("Default poll interval = %v, want 2s", cfg.Check.PollInterval)
	}
	if cfg.Check.MaxFileSize != 10*1024*1024 {
		t.Errorf("Default maxFileSize = %d, want 10 MiB", cfg.Check.MaxFileSize)
	}
	if cfg.Chunk.MaxChunkSize != 2000 || cfg.Chunk.OverlapSize != 200 || !cfg.Chunk.PreserveBoundaries {
		t.Errorf("Default chunk = %+v, want 2000/200/true", cfg.Chunk)
	}
	if cfg.History.Limit != 1000 {
		t.Errorf("Default history limit = %d, want 1000", cfg.History.Limit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestMergeEnv(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("SCRIBE_MODEL", "gpt-4o")
	t.Setenv("ACROLINX_BASE_URL", "https://acme.acrolinx.cloud")
	t.Setenv("ACROLINX_API_TOKEN", "tok")
	t.Setenv("SCRIBE_FORMAT", "json")
	t.Setenv("SCRIBE_CHECK_TIMEOUT", "90s")
	t.Setenv("SCRIBE_MAX_CHUNK_SIZE", "1500")

	cfg := Default()
	if err := mergeEnv(&cfg); err != nil {
		t.Fatalf("mergeEnv error: %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("Provider = %q, want %q", cfg.LLM.Provider, "openai")
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("Model = %q, want %q", cfg.LLM.Model, "gpt-4o")
	}
	if cfg.Checking.BaseURL != "https://acme.acrolinx.cloud" {
		t.Errorf("Checking.BaseURL = %q", cfg.Checking.BaseURL)
	}
	if cfg.Checking.Token != "tok" {
		t.Errorf("Checking.Token = %q, want %q", cfg.Checking.Token, "tok")
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.Check.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v, want 90s", cfg.Check.Timeout)
	}
	if cfg.Chunk.MaxChunkSize != 1500 {
		t.Errorf("MaxChunkSize = %d, want 1500", cfg.Chunk.MaxChunkSize)
	}
}

func TestMergeEnv_InvalidValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"SCRIBE_CHECK_TIMEOUT", "soon"},
		{"SCRIBE_MAX_CHUNK_SIZE", "big"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			cfg := Default()
			err := mergeEnv(&cfg)
			if err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
			if !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q should name %s", err, tt.key)
			}
		})
	}
}

func TestMergeProviderEnv(t *testing.T) {
	for _, k := range []string{
		"AICORE_SERVICE_KEY", "AICORE_RESOURCE_GROUP", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"ANTHROPIC_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY", "OLLAMA_HOST", "SCRIBE_OLLAMA_API_KEY",
	} {
		t.Setenv(k, "")
	}
	t.Setenv("AICORE_SERVICE_KEY", `{"clientid":"id"}`)
	t.Setenv("AICORE_RESOURCE_GROUP", "team-a")
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("OPENAI_BASE_URL", "https://proxy.example.com/v1")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
	t.Setenv("GOOGLE_API_KEY", "g-key")
	t.Setenv("OLLAMA_HOST", "http://gpu-box:11434/v1")

	tests := []struct {
		provider string
		want     LLMConfig
	}{
		{"", LLMConfig{ServiceKey: `{"clientid":"id"}`, ResourceGroup: "team-a"}},
		{"sap-ai-core", LLMConfig{Provider: "sap-ai-core", ServiceKey: `{"clientid":"id"}`, ResourceGroup: "team-a"}},
		{"openrouter", LLMConfig{Provider: "openrouter", APIKey: "sk-openai", BaseURL: "https://proxy.example.com/v1"}},
		{"anthropic", LLMConfig{Provider: "anthropic", APIKey: "sk-ant"}},
		{"gemini", LLMConfig{Provider: "gemini", APIKey: "g-key"}},
		{"ollama", LLMConfig{Provider: "ollama", BaseURL: "http://gpu-box:11434/v1"}},
	}
	for _, tt := range tests {
		llm := LLMConfig{Provider: tt.provider}
		mergeProviderEnv(&llm)
		if llm != tt.want {
			t.Errorf("mergeProviderEnv(%q) = %+v, want %+v", tt.provider, llm, tt.want)
		}
	}
}

func TestMergeProviderEnv_KeepsFileValueWithoutEnv(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	llm := LLMConfig{Provider: "anthropic", APIKey: "from-file"}
	mergeProviderEnv(&llm)
	if llm.APIKey != "from-file" {
		t.Errorf("APIKey = %q, want from-file", llm.APIKey)
	}
}

func TestLoad_ProviderOverrideSelectsVendorEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("AICORE_SERVICE_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant")

	cfg, err := Load(map[string]string{"provider": "anthropic"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LLM.APIKey != "sk-ant" {
		t.Errorf("APIKey = %q, want sk-ant", cfg.LLM.APIKey)
	}
}

func TestMergeOverrides(t *testing.T) {
	cfg := Default()
	overrides := map[string]string{
		"provider": "gemini",
		"model":    "gemini-2.5-flash",
		"format":   "json",
		"language": "de",
		"timeout":  "30s",
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		t.Fatalf("mergeOverrides error: %v", err)
	}

	if cfg.LLM.Provider != "gemini" {
		t.Errorf("Provider = %q, want %q", cfg.LLM.Provider, "gemini")
	}
	if cfg.LLM.Model != "gemini-2.5-flash" {
		t.Errorf("Model = %q, want %q", cfg.LLM.Model, "gemini-2.5-flash")
	}
	if cfg.Format != "json" {
		t.Errorf("Format = %q, want %q", cfg.Format, "json")
	}
	if cfg.Check.Language != "de" {
		t.Errorf("Language = %q, want %q", cfg.Check.Language, "de")
	}
	if cfg.Check.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Check.Timeout)
	}
}

func TestMergeOverrides_Nil(t *testing.T) {
	cfg := Default()
	if err := mergeOverrides(&cfg, nil); err != nil {
		t.Fatalf("mergeOverrides error: %v", err)
	}
	if cfg.LLM.Provider != "sap-ai-core" {
		t.Errorf("Provider changed with nil overrides")
	}
}

func TestSetField(t *testing.T) {
	cfg := Default()

	tests := []struct {
		key   string
		value string
	}{
		{"llm.provider", "anthropic"},
		{"llm.model", "claude-3-5-haiku-latest"},
		{"checking.baseURL", "https://acme.acrolinx.cloud"},
		{"check.timeout", "2m"},
		{"chunk.maxChunkSize", "3000"},
		{"chunk.preserveBoundaries", "false"},
		{"history.limit", "50"},
		{"privacy.redactSecrets", "true"},
		{"format", "markdown"},
	}

	for _, tt := range tests {
		if err := SetField(&cfg, tt.key, tt.value); err != nil {
			t.Errorf("SetField(%q, %q) error: %v", tt.key, tt.value, err)
		}
	}

	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("Provider = %q, want %q", cfg.LLM.Provider, "anthropic")
	}
	if cfg.Check.Timeout != 2*time.Minute {
		t.Errorf("Timeout = %v, want 2m", cfg.Check.Timeout)
	}
	if cfg.Chunk.MaxChunkSize != 3000 {
		t.Errorf("MaxChunkSize = %d, want 3000", cfg.Chunk.MaxChunkSize)
	}
	if cfg.Chunk.PreserveBoundaries {
		t.Error("PreserveBoundaries should be false")
	}
	if !cfg.Privacy.RedactSecrets {
		t.Error("RedactSecrets should be true")
	}
}

func TestSetField_UnknownKey(t *testing.T) {
	cfg := Default()
	if err := SetField(&cfg, "nonexistent", "value"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestSetField_InvalidValue(t *testing.T) {
	cfg := Default()
	for _, key := range []string{"history.limit", "check.timeout", "cache.enabled"} {
		if err := SetField(&cfg, key, "not-a-value"); err == nil {
			t.Errorf("SetField(%q) expected error for invalid value", key)
		}
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Format = "xml"
	cfg.Chunk.OverlapSize = cfg.Chunk.MaxChunkSize
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "format") || !strings.Contains(err.Error(), "overlapSize") {
		t.Errorf("error should mention both problems, got %q", err)
	}
}

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	cfg := Default()
	cfg.LLM.Provider = "openrouter"
	cfg.Check.Timeout = 45 * time.Second
	cfg.Chunk.PreserveBoundaries = false
	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "scribe", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.LLM.Provider != "openrouter" {
		t.Errorf("Provider = %q, want openrouter", loaded.LLM.Provider)
	}
	if loaded.Check.Timeout != 45*time.Second {
		t.Errorf("Timeout = %v, want 45s", loaded.Check.Timeout)
	}
	if loaded.Chunk.PreserveBoundaries {
		t.Error("PreserveBoundaries should round-trip as false")
	}
}

func TestLoadFile_PartialKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "scribe"), 0o755); err != nil {
		t.Fatal(err)
	}
	data := "llm:\n  provider: ollama\n"
	if err := os.WriteFile(filepath.Join(dir, "scribe", "config.yaml"), []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LLM.Provider != "ollama" {
		t.Errorf("Provider = %q, want ollama", cfg.LLM.Provider)
	}
	if cfg.Chunk.MaxChunkSize != 2000 {
		t.Errorf("MaxChunkSize = %d, want default 2000", cfg.Chunk.MaxChunkSize)
	}
	if cfg.Format != "text" {
		t.Errorf("Format = %q, want default text", cfg.Format)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := LoadFile()
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.LLM.Provider != "sap-ai-core" {
		t.Errorf("missing file should yield defaults, got provider %q", cfg.LLM.Provider)
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := Default()
	cfg.History.Path = "/tmp/custom.db"
	got, err := cfg.HistoryPath()
	if err != nil || got != "/tmp/custom.db" {
		t.Errorf("HistoryPath() = %q, %v; want /tmp/custom.db", got, err)
	}

	t.Setenv("XDG_DATA_HOME", "/data")
	cfg.History.Path = ""
	got, err = cfg.HistoryPath()
	if err != nil || got != filepath.Join("/data", "scribe", "history.db") {
		t.Errorf("HistoryPath() = %q, %v", got, err)
	}
}
