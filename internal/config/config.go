package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Supported extraction providers.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Config holds the full application configuration.
type Config struct {
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Gemini    GeminiConfig    `yaml:"gemini" mapstructure:"gemini"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Output    OutputConfig    `yaml:"output" mapstructure:"output"`
	Prompt    PromptConfig    `yaml:"prompt" mapstructure:"prompt"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// BatchConfig configures how input tables are split.
type BatchConfig struct {
	Size int `yaml:"size" mapstructure:"size"`
}

// ExtractConfig configures the extraction client.
type ExtractConfig struct {
	Provider           string  `yaml:"provider" mapstructure:"provider"`
	MaxRetries         int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimitDelaySecs float64 `yaml:"rate_limit_delay_secs" mapstructure:"rate_limit_delay_secs"`
	Backoff            string  `yaml:"backoff" mapstructure:"backoff"` // "linear" or "exponential"
	RequestsPerMinute  int     `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// RateLimitDelay returns the configured delay as a duration.
func (e ExtractConfig) RateLimitDelay() time.Duration {
	return time.Duration(e.RateLimitDelaySecs * float64(time.Second))
}

// GeminiConfig holds Google Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	Model   string `yaml:"model" mapstructure:"model"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// InputConfig describes the fixed list of expected input tables. When Files is
// empty the list is generated from Pattern over [Start, Stop) in Step increments.
type InputConfig struct {
	Dir     string   `yaml:"dir" mapstructure:"dir"`
	Pattern string   `yaml:"pattern" mapstructure:"pattern"`
	Start   int      `yaml:"start" mapstructure:"start"`
	Stop    int      `yaml:"stop" mapstructure:"stop"`
	Step    int      `yaml:"step" mapstructure:"step"`
	Files   []string `yaml:"files" mapstructure:"files"`
	// Delimiter is the CSV field separator, a single character.
	Delimiter string `yaml:"delimiter" mapstructure:"delimiter"`
	// Sheet names the worksheet read from .xlsx inputs. Empty means the first.
	Sheet string `yaml:"sheet" mapstructure:"sheet"`
}

// DelimiterRune returns the configured CSV separator, or 0 for the reader's default.
func (c InputConfig) DelimiterRune() rune {
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// OutputConfig names the result table and the two failure logs.
type OutputConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	File        string `yaml:"file" mapstructure:"file"`
	SkippedFile string `yaml:"skipped_file" mapstructure:"skipped_file"`
	ErrorFile   string `yaml:"error_file" mapstructure:"error_file"`
}

// ResultPath returns the result table path inside Dir.
func (o OutputConfig) ResultPath() string { return filepath.Join(o.Dir, o.File) }

// SkippedPath returns the skipped-batch log path inside Dir.
func (o OutputConfig) SkippedPath() string { return filepath.Join(o.Dir, o.SkippedFile) }

// ErrorPath returns the error log path inside Dir.
func (o OutputConfig) ErrorPath() string { return filepath.Join(o.Dir, o.ErrorFile) }

// PromptConfig points at an optional YAML prompt template.
type PromptConfig struct {
	File string `yaml:"file" mapstructure:"file"`
}

// StoreConfig configures the run ledger backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres or none
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ConfigError reports an invalid or incomplete configuration. It is the only
// error class that aborts a run before any input is read.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LISTING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known provider variables.
	if err := v.BindEnv("gemini.key", "LISTING_GEMINI_KEY", "GEMINI_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind gemini key")
	}
	if err := v.BindEnv("anthropic.key", "LISTING_ANTHROPIC_KEY", "ANTHROPIC_API_KEY"); err != nil {
		return nil, eris.Wrap(err, "config: bind anthropic key")
	}

	// Defaults
	v.SetDefault("batch.size", 2)
	v.SetDefault("extract.provider", ProviderGemini)
	v.SetDefault("extract.max_retries", 5)
	v.SetDefault("extract.rate_limit_delay_secs", 5)
	v.SetDefault("extract.backoff", "linear")
	v.SetDefault("extract.requests_per_minute", 0)
	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.base_url", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 8192)
	v.SetDefault("input.dir", "moiz")
	v.SetDefault("input.pattern", "split_pak_file_%d.csv")
	v.SetDefault("input.start", 3)
	v.SetDefault("input.stop", 51)
	v.SetDefault("input.step", 3)
	v.SetDefault("input.files", []string{})
	v.SetDefault("input.delimiter", ",")
	v.SetDefault("input.sheet", "")
	v.SetDefault("output.dir", "output_folder")
	v.SetDefault("output.file", "output1.csv")
	v.SetDefault("output.skipped_file", "skipped_batches.txt")
	v.SetDefault("output.error_file", "error_logs.txt")
	v.SetDefault("prompt.file", "")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "listing-extract.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the options an extraction run depends on. It returns a
// *ConfigError describing the first problem found.
func (c *Config) Validate() error {
	switch c.Extract.Provider {
	case ProviderGemini:
		if c.Gemini.Key == "" {
			return &ConfigError{Field: "gemini.key", Reason: "GEMINI_API_KEY environment variable is not set"}
		}
	case ProviderAnthropic:
		if c.Anthropic.Key == "" {
			return &ConfigError{Field: "anthropic.key", Reason: "ANTHROPIC_API_KEY environment variable is not set"}
		}
	default:
		return &ConfigError{Field: "extract.provider", Reason: fmt.Sprintf("unsupported provider %q", c.Extract.Provider)}
	}

	if c.Batch.Size < 1 {
		return &ConfigError{Field: "batch.size", Reason: "must be at least 1"}
	}
	if c.Extract.MaxRetries < 1 {
		return &ConfigError{Field: "extract.max_retries", Reason: "must be at least 1"}
	}
	if c.Extract.RateLimitDelaySecs < 0 {
		return &ConfigError{Field: "extract.rate_limit_delay_secs", Reason: "must not be negative"}
	}
	switch c.Extract.Backoff {
	case "linear", "exponential":
	default:
		return &ConfigError{Field: "extract.backoff", Reason: fmt.Sprintf("unsupported backoff %q", c.Extract.Backoff)}
	}
	if len(c.Input.Files) == 0 {
		if c.Input.Step == 0 {
			return &ConfigError{Field: "input.step", Reason: "must not be zero"}
		}
		if name := fmt.Sprintf(c.Input.Pattern, c.Input.Start); strings.Contains(name, "%!") {
			return &ConfigError{Field: "input.pattern", Reason: "must contain exactly one integer verb such as %d or %03d"}
		}
	}
	if c.Input.Delimiter != "" {
		r, size := utf8.DecodeRuneInString(c.Input.Delimiter)
		if size != len(c.Input.Delimiter) || r == utf8.RuneError || r == '"' || r == '\r' || r == '\n' {
			return &ConfigError{Field: "input.delimiter", Reason: fmt.Sprintf("invalid delimiter %q", c.Input.Delimiter)}
		}
	}
	if c.Output.File == "" {
		return &ConfigError{Field: "output.file", Reason: "must not be empty"}
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
