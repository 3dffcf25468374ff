package pipeline

import (
	"time"

	"grantreview/internal/scoring"
)

// Config is the per-run configuration passed to the controller. Nothing in
// this package reads process-wide settings.
type Config struct {
	// SendEmail hands escalations to the Mailer; otherwise the payload is
	// built but not sent.
	SendEmail bool
	Recipient string

	MaxSummaryInputTokens int // summarization input cap (default 8000)
	MaxComplianceChars    int // compliance input cap (default 10000)
	SearchTopK            int // passages requested from search (default 5)

	// StageTimeout bounds each collaborator call. Zero means no bound.
	StageTimeout time.Duration

	Thresholds scoring.Thresholds
	Policy     *scoring.Policy
}

// charsPerToken approximates tokens for input truncation.
const charsPerToken = 4

// DefaultRecipient receives escalations when none is configured.
const DefaultRecipient = "legal-review@example.gov"

// DefaultConfig returns conservative defaults.
func DefaultConfig() Config {
	return Config{
		Recipient:             DefaultRecipient,
		MaxSummaryInputTokens: 8000,
		MaxComplianceChars:    10000,
		SearchTopK:            5,
		StageTimeout:          60 * time.Second,
		Thresholds:            scoring.DefaultThresholds(),
		Policy:                scoring.DefaultPolicy(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Recipient == "" {
		c.Recipient = d.Recipient
	}
	if c.MaxSummaryInputTokens <= 0 {
		c.MaxSummaryInputTokens = d.MaxSummaryInputTokens
	}
	if c.MaxComplianceChars <= 0 {
		c.MaxComplianceChars = d.MaxComplianceChars
	}
	if c.SearchTopK <= 0 {
		c.SearchTopK = d.SearchTopK
	}
	if c.Thresholds == (scoring.Thresholds{}) {
		c.Thresholds = d.Thresholds
	}
	if c.Policy == nil {
		c.Policy = d.Policy
	}
	return c
}
