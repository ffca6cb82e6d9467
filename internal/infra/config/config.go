// Package config provides application-wide configuration. Values resolve in
// three layers: built-in defaults, an optional YAML file, then environment
// variables. Credentials are read once at startup and injected into the
// adapters; nothing reads ambient state at call time.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration for the relay.
type Config struct {
	Host string `yaml:"host"` // RELAY_HOST — default "0.0.0.0"
	Port int    `yaml:"port"` // RELAY_PORT — default 8080

	OpenAIAPIKey  string `yaml:"openai_api_key"`  // OPENAI_API_KEY
	OpenAIBaseURL string `yaml:"openai_base_url"` // OPENAI_BASE_URL
	OpenAIModel   string `yaml:"openai_model"`    // OPENAI_MODEL — default "gpt-4o-mini"

	GeminiAPIKey  string `yaml:"gemini_api_key"`  // GEMINI_API_KEY
	GeminiBaseURL string `yaml:"gemini_base_url"` // GEMINI_BASE_URL
	GeminiModel   string `yaml:"gemini_model"`    // GEMINI_MODEL — default "gemini-1.5-flash"

	// FlushThreshold is the buffered-character count that forces an output
	// flush. RELAY_FLUSH_THRESHOLD — default 4.
	FlushThreshold int `yaml:"flush_threshold"`

	// RequestLogPath is the SQLite file for the request-outcome log.
	// RELAY_REQUEST_LOG — default "relay.db"; empty string disables logging.
	RequestLogPath string `yaml:"request_log_path"`
}

const (
	envKeyHost           = "RELAY_HOST"
	envKeyPort           = "RELAY_PORT"
	envKeyOpenAIAPIKey   = "OPENAI_API_KEY"
	envKeyOpenAIBaseURL  = "OPENAI_BASE_URL"
	envKeyOpenAIModel    = "OPENAI_MODEL"
	envKeyGeminiAPIKey   = "GEMINI_API_KEY"
	envKeyGeminiBaseURL  = "GEMINI_BASE_URL"
	envKeyGeminiModel    = "GEMINI_MODEL"
	envKeyFlushThreshold = "RELAY_FLUSH_THRESHOLD"
	envKeyRequestLog     = "RELAY_REQUEST_LOG"
)

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Host:           "0.0.0.0",
		Port:           8080,
		OpenAIBaseURL:  "https://api.openai.com/v1",
		OpenAIModel:    "gpt-4o-mini",
		GeminiBaseURL:  "https://generativelanguage.googleapis.com/v1beta",
		GeminiModel:    "gemini-1.5-flash",
		FlushThreshold: 4,
		RequestLogPath: "relay.db",
	}
}

// Load resolves the configuration: defaults, then the YAML file at path (if
// path is non-empty), then environment overrides.
func Load(path string) (Config, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Host = envOr(envKeyHost, c.Host)
	c.Port = envIntOr(envKeyPort, c.Port)
	c.OpenAIAPIKey = envOr(envKeyOpenAIAPIKey, c.OpenAIAPIKey)
	c.OpenAIBaseURL = envOr(envKeyOpenAIBaseURL, c.OpenAIBaseURL)
	c.OpenAIModel = envOr(envKeyOpenAIModel, c.OpenAIModel)
	c.GeminiAPIKey = envOr(envKeyGeminiAPIKey, c.GeminiAPIKey)
	c.GeminiBaseURL = envOr(envKeyGeminiBaseURL, c.GeminiBaseURL)
	c.GeminiModel = envOr(envKeyGeminiModel, c.GeminiModel)
	c.FlushThreshold = envIntOr(envKeyFlushThreshold, c.FlushThreshold)
	if v, set := os.LookupEnv(envKeyRequestLog); set {
		// an explicitly empty value disables the request log
		c.RequestLogPath = v
	}
}

// envOr returns the value of the environment variable key, or fallback when
// it is unset or empty.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOr parses an integer environment variable, keeping fallback on
// missing or unparseable values.
func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
