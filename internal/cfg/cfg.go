package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds app-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	APIToken              string
	DefaultOwner          string
	PriorityConfigVersion string
	PriorityConfigFile    string
	ClaudeAPIKey          string
	ClaudeModel           string
	SlackWebhookURL       string
	GoogleCredentialsFile string
	GoogleTokenFile       string
	GoogleCalendarName    string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory stores)")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on API requests (empty = no auth)")
	fs.StringVar(&c.DefaultOwner, "default-owner", "default", "owner attributed to requests without an X-Sift-User header")
	fs.StringVar(&c.PriorityConfigVersion, "priority-config", "v1", "named priority config version (v1, v2)")
	fs.StringVar(&c.PriorityConfigFile, "priority-config-file", "", "YAML file overriding the named priority config")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for the Claude enrichment provider (empty = enrichment disabled)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for needs_review notifications")
	fs.StringVar(&c.GoogleCredentialsFile, "google-credentials-file", "", "Google OAuth credentials JSON (empty = calendar from store)")
	fs.StringVar(&c.GoogleTokenFile, "google-token-file", "", "Google OAuth token JSON")
	fs.StringVar(&c.GoogleCalendarName, "google-calendar-name", "", "display name of the Google calendar to read")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.DefaultOwner == "" {
		errs = append(errs, errors.New("DEFAULT_OWNER must not be empty"))
	}

	// Named config is resolved at startup; fail fast on a typo.
	if c.PriorityConfigVersion != "v1" && c.PriorityConfigVersion != "v2" {
		errs = append(errs, fmt.Errorf("invalid PRIORITY_CONFIG %q (must be v1 or v2)", c.PriorityConfigVersion))
	}

	// Enrichment needs a model when a key is set.
	if c.ClaudeAPIKey != "" && c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
	}

	// The calendar reader needs all three of its settings.
	if c.GoogleCredentialsFile != "" {
		if c.GoogleTokenFile == "" {
			errs = append(errs, errors.New("GOOGLE_TOKEN_FILE is required when GOOGLE_CREDENTIALS_FILE is set"))
		}
		if c.GoogleCalendarName == "" {
			errs = append(errs, errors.New("GOOGLE_CALENDAR_NAME is required when GOOGLE_CREDENTIALS_FILE is set"))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
