// Package config loads grantreview settings from YAML with environment
// overrides and converts them into per-run pipeline configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"grantreview/internal/kb"
	"grantreview/internal/llm"
	"grantreview/internal/pipeline"
	"grantreview/internal/scoring"
	"grantreview/internal/store"
)

// DefaultPath is where the CLI looks for configuration.
const DefaultPath = ".grantreview/config.yaml"

// Config holds all grantreview settings.
type Config struct {
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	LLM           LLMConfig           `yaml:"llm"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	SearchService SearchServiceConfig `yaml:"search_service"`
	Notification  NotificationConfig  `yaml:"notification"`
	Store         StoreConfig         `yaml:"store"`
	Logging       LoggingConfig       `yaml:"logging"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Policy        PolicyConfig        `yaml:"policy"`
}

// PipelineConfig controls the review stages.
type PipelineConfig struct {
	// UseExternalServices selects Gemini and the remote search service over
	// the built-in heuristic completer and local knowledge base.
	UseExternalServices   bool   `yaml:"use_external_services"`
	SendEmail             bool   `yaml:"send_email"`
	MaxSummaryInputTokens int    `yaml:"max_summary_input_tokens"`
	MaxComplianceChars    int    `yaml:"max_compliance_chars"`
	SearchTopK            int    `yaml:"search_top_k"`
	StageTimeout          string `yaml:"stage_timeout"`
	Parallel              int    `yaml:"parallel"`
}

// LLMConfig selects the completion service.
type LLMConfig struct {
	Provider        string  `yaml:"provider"` // basic, gemini
	Model           string  `yaml:"model"`
	APIKey          string  `yaml:"api_key"`
	Temperature     float64 `yaml:"temperature"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
}

// KnowledgeBaseConfig configures the local executive-order index.
type KnowledgeBaseConfig struct {
	DBPath         string `yaml:"db_path"`
	DocumentsDir   string `yaml:"documents_dir"`
	EmbeddingModel string `yaml:"embedding_model"`
	Rerank         bool   `yaml:"rerank"`
}

// SearchServiceConfig configures the remote search service.
type SearchServiceConfig struct {
	Endpoint   string `yaml:"endpoint"`
	Index      string `yaml:"index"`
	APIKey     string `yaml:"api_key"`
	APIVersion string `yaml:"api_version"`
}

// NotificationConfig configures escalation delivery.
type NotificationConfig struct {
	Recipient    string `yaml:"recipient"`
	Sender       string `yaml:"sender"`
	Mode         string `yaml:"mode"` // smtp, outbox
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`
	OutboxDir    string `yaml:"outbox_dir"`
}

// StoreConfig locates run history.
type StoreConfig struct {
	DBPath string `yaml:"db_path"`
}

// LoggingConfig mirrors the root command's log flags.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig exposes prometheus metrics when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// PolicyConfig points at an escalation-policy override.
type PolicyConfig struct {
	Path string `yaml:"path"`
}

// Valid option values.
var (
	ValidProviders  = []string{"basic", "gemini"}
	ValidModes      = []string{"smtp", "outbox"}
	ValidLogLevels  = []string{"debug", "info", "warn", "error"}
	ValidLogFormats = []string{"text", "json"}
	defaultTimeout  = 60 * time.Second
)

// DefaultConfig returns the built-in settings: heuristic completer, local
// knowledge base, outbox delivery with no directory (simulated).
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			MaxSummaryInputTokens: 8000,
			MaxComplianceChars:    10000,
			SearchTopK:            5,
			StageTimeout:          "60s",
			Parallel:              4,
		},
		LLM: LLMConfig{
			Provider:        "basic",
			Model:           llm.DefaultGeminiModel,
			Temperature:     0.3,
			MaxOutputTokens: 4096,
		},
		KnowledgeBase: KnowledgeBaseConfig{
			DBPath:         kb.DefaultDBPath,
			DocumentsDir:   "executive_orders",
			EmbeddingModel: kb.DefaultEmbeddingModel,
		},
		Notification: NotificationConfig{
			Recipient: pipeline.DefaultRecipient,
			Mode:      "outbox",
			SMTPPort:  587,
		},
		Store:   StoreConfig{DBPath: store.DefaultDBPath},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from a YAML file. A missing file yields defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes configuration as YAML, creating the parent directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if v := os.Getenv("GRANTREVIEW_SEARCH_ENDPOINT"); v != "" {
		c.SearchService.Endpoint = v
	}
	if v := os.Getenv("GRANTREVIEW_SEARCH_KEY"); v != "" {
		c.SearchService.APIKey = v
	}
	if v := os.Getenv("GRANTREVIEW_SMTP_PASSWORD"); v != "" {
		c.Notification.SMTPPassword = v
	}
	if v := os.Getenv("GRANTREVIEW_RECIPIENT"); v != "" {
		c.Notification.Recipient = v
	}
	if v := os.Getenv("GRANTREVIEW_DB"); v != "" {
		c.Store.DBPath = v
	}
}

// StageTimeout returns the per-call collaborator bound.
func (c *Config) StageTimeout() time.Duration {
	if c.Pipeline.StageTimeout == "" {
		return defaultTimeout
	}
	d, err := time.ParseDuration(c.Pipeline.StageTimeout)
	if err != nil {
		return defaultTimeout
	}
	return d
}

// Parallel returns the batch worker count, at least 1.
func (c *Config) Parallel() int {
	return max(c.Pipeline.Parallel, 1)
}

// Validate reports the first inconsistent setting.
func (c *Config) Validate() error {
	if !slices.Contains(ValidProviders, c.LLM.Provider) {
		return fmt.Errorf("invalid llm provider %q (valid: %v)", c.LLM.Provider, ValidProviders)
	}
	if c.LLM.Provider == "gemini" && c.LLM.APIKey == "" {
		return errors.New("llm provider gemini requires an API key (set GEMINI_API_KEY)")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm temperature %.2f out of range [0, 2]", c.LLM.Temperature)
	}
	if !slices.Contains(ValidModes, c.Notification.Mode) {
		return fmt.Errorf("invalid notification mode %q (valid: %v)", c.Notification.Mode, ValidModes)
	}
	if c.Notification.Mode == "smtp" && c.Notification.SMTPHost == "" {
		return errors.New("notification mode smtp requires smtp_host")
	}
	if c.SearchService.Endpoint != "" && c.SearchService.Index == "" {
		return errors.New("search_service.endpoint requires search_service.index")
	}
	if c.Pipeline.StageTimeout != "" {
		d, err := time.ParseDuration(c.Pipeline.StageTimeout)
		if err != nil {
			return fmt.Errorf("invalid pipeline.stage_timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("pipeline.stage_timeout must not be negative, got %s", d)
		}
	}
	if c.Pipeline.Parallel < 0 {
		return fmt.Errorf("pipeline.parallel must not be negative, got %d", c.Pipeline.Parallel)
	}
	if c.Logging.Level != "" && !slices.Contains(ValidLogLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level %q (valid: %v)", c.Logging.Level, ValidLogLevels)
	}
	if c.Logging.Format != "" && !slices.Contains(ValidLogFormats, c.Logging.Format) {
		return fmt.Errorf("invalid log format %q (valid: %v)", c.Logging.Format, ValidLogFormats)
	}
	return nil
}

// PipelineConfig builds the explicit per-run configuration, loading the
// escalation policy override when one is configured.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	pc := pipeline.Config{
		SendEmail:             c.Pipeline.SendEmail,
		Recipient:             c.Notification.Recipient,
		MaxSummaryInputTokens: c.Pipeline.MaxSummaryInputTokens,
		MaxComplianceChars:    c.Pipeline.MaxComplianceChars,
		SearchTopK:            c.Pipeline.SearchTopK,
		StageTimeout:          c.StageTimeout(),
		Thresholds:            scoring.DefaultThresholds(),
		Policy:                scoring.DefaultPolicy(),
	}
	if c.Policy.Path != "" {
		pol, err := scoring.LoadPolicy(c.Policy.Path)
		if err != nil {
			return pipeline.Config{}, fmt.Errorf("load policy override: %w", err)
		}
		pc.Policy = pol
	}
	return pc, nil
}
