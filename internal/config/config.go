package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Application ApplicationConfig `mapstructure:"application"`
	AI          AIConfig          `mapstructure:"ai"`
	Log         LogConfig         `mapstructure:"log"`
}

type ApplicationConfig struct {
	Name             string          `mapstructure:"name"`
	Host             string          `mapstructure:"host"`
	Port             int             `mapstructure:"port"`
	StaticDir        string          `mapstructure:"static_dir"`
	MaxJSONBytes     int64           `mapstructure:"max_json_bytes"`
	MaxTemplateBytes int64           `mapstructure:"max_template_bytes"`
	CORSOrigins      []string        `mapstructure:"cors_origins"`
	Storage          StorageConfig   `mapstructure:"storage"`
	RateLimit        RateLimitConfig `mapstructure:"rate_limit"`
}

type StorageConfig struct {
	// Template is the directory holding server-side .pptx templates.
	// Empty disables the template library.
	Template string `mapstructure:"template"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerMinute > 0
}

type AIConfig struct {
	Timeout   time.Duration               `mapstructure:"timeout"`
	Providers map[string]ProviderSettings `mapstructure:"providers"`
}

// ProviderSettings overrides a built-in adapter or declares an extra one.
// API keys are never part of the configuration; callers pass them per request.
type ProviderSettings struct {
	Driver      string  `mapstructure:"driver"` // openai, anthropic, gemini
	Endpoint    string  `mapstructure:"endpoint"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text, json
}

func (c *LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (c *ApplicationConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

const (
	DefaultPort             = 3001
	DefaultMaxJSONBytes     = 10 << 20
	DefaultMaxTemplateBytes = 50 << 20
	DefaultAITimeout        = 120 * time.Second
)

// LoadConfig reads .env, an optional config.yaml and the environment.
func LoadConfig() (*Config, error) {
	return load(viper.New(), "config.yaml")
}

func load(v *viper.Viper, file string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("Note: .env file not found, using system environment variables")
	}

	v.SetConfigFile(file)
	v.AutomaticEnv()

	// Environment variable mappings
	mappings := []struct {
		key, env string
	}{
		{"application.name", "APP_NAME"},
		{"application.host", "HOST"},
		{"application.port", "PORT"},
		{"application.static_dir", "STATIC_DIR"},
		{"application.max_json_bytes", "MAX_JSON_BYTES"},
		{"application.max_template_bytes", "MAX_TEMPLATE_BYTES"},
		{"application.cors_origins", "CORS_ORIGINS"},
		{"application.storage.template", "STORAGE_TEMPLATE"},
		{"application.rate_limit.requests_per_minute", "RATE_LIMIT_RPM"},
		{"application.rate_limit.burst", "RATE_LIMIT_BURST"},

		// AI Providers
		{"ai.timeout", "AI_TIMEOUT"},
		{"ai.providers.openai.model", "OPENAI_MODEL"},
		{"ai.providers.openai.endpoint", "OPENAI_ENDPOINT"},
		{"ai.providers.anthropic.model", "ANTHROPIC_MODEL"},
		{"ai.providers.anthropic.endpoint", "ANTHROPIC_ENDPOINT"},
		{"ai.providers.gemini.model", "GEMINI_MODEL"},
		{"ai.providers.gemini.endpoint", "GEMINI_ENDPOINT"},
		{"ai.providers.aipipe.model", "AIPIPE_MODEL"},
		{"ai.providers.aipipe.endpoint", "AIPIPE_ENDPOINT"},

		// Logging
		{"log.level", "LOG_LEVEL"},
		{"log.format", "LOG_FORMAT"},
	}

	for _, m := range mappings {
		v.BindEnv(m.key, m.env)
	}

	// Defaults
	v.SetDefault("application.name", "AI Presentation Generator")
	v.SetDefault("application.port", DefaultPort)
	v.SetDefault("application.static_dir", "public")
	v.SetDefault("application.max_json_bytes", DefaultMaxJSONBytes)
	v.SetDefault("application.max_template_bytes", DefaultMaxTemplateBytes)
	v.SetDefault("application.cors_origins", []string{"*"})
	v.SetDefault("application.rate_limit.requests_per_minute", 60)
	v.SetDefault("application.rate_limit.burst", 10)
	v.SetDefault("ai.timeout", DefaultAITimeout)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if err := v.ReadInConfig(); err != nil {
		// config.yaml is optional
		slog.Debug("config file not loaded", "file", file, "error", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	// CORS_ORIGINS arrives as a comma separated string from the environment
	cfg.Application.CORSOrigins = splitList(strings.Join(cfg.Application.CORSOrigins, ","))
	if cfg.Application.Port == 0 {
		cfg.Application.Port = DefaultPort
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = DefaultAITimeout
	}

	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
