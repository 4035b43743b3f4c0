package cfg

import (
	"flag"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		DefaultOwner:          "default",
		PriorityConfigVersion: "v1",
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.DefaultOwner != "default" {
		t.Errorf("DefaultOwner = %q, want %q", c.DefaultOwner, "default")
	}
	if c.PriorityConfigVersion != "v1" {
		t.Errorf("PriorityConfigVersion = %q, want %q", c.PriorityConfigVersion, "v1")
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}

	// The defaults with no key or calendar configured must validate.
	if err := c.Validate(); err != nil {
		t.Errorf("Validate on defaults: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-database-url", "postgres://sift@localhost/sift",
		"-default-owner", "alex",
		"-priority-config", "v2",
		"-claude-api-key", "sk-override",
		"-slack-webhook-url", "https://hooks.slack.example/T/B/x",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.DatabaseURL != "postgres://sift@localhost/sift" {
		t.Errorf("DatabaseURL = %q", c.DatabaseURL)
	}
	if c.DefaultOwner != "alex" {
		t.Errorf("DefaultOwner = %q, want alex", c.DefaultOwner)
	}
	if c.PriorityConfigVersion != "v2" {
		t.Errorf("PriorityConfigVersion = %q, want v2", c.PriorityConfigVersion)
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q", c.ClaudeAPIKey)
	}
	if c.SlackWebhookURL != "https://hooks.slack.example/T/B/x" {
		t.Errorf("SlackWebhookURL = %q", c.SlackWebhookURL)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantErr   bool
		errSubstr []string
	}{
		{
			name:   "base is valid",
			mutate: func(*Config) {},
		},
		{
			name:      "drain zero",
			mutate:    func(c *Config) { c.DrainSeconds = 0 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			mutate:    func(c *Config) { c.DrainSeconds = 301; c.ShutdownBudgetSeconds = 302 },
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget equals drain",
			mutate:    func(c *Config) { c.ShutdownBudgetSeconds = c.DrainSeconds },
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "port zero",
			mutate:    func(c *Config) { c.APIPort = 0 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "port above max",
			mutate:    func(c *Config) { c.APIPort = 65536 },
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name:      "empty default owner",
			mutate:    func(c *Config) { c.DefaultOwner = "" },
			wantErr:   true,
			errSubstr: []string{"DEFAULT_OWNER"},
		},
		{
			name:      "unknown priority config",
			mutate:    func(c *Config) { c.PriorityConfigVersion = "v9" },
			wantErr:   true,
			errSubstr: []string{"PRIORITY_CONFIG"},
		},
		{
			name:      "claude key without model",
			mutate:    func(c *Config) { c.ClaudeAPIKey = "sk-x"; c.ClaudeModel = "" },
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
		{
			name:   "claude key with model",
			mutate: func(c *Config) { c.ClaudeAPIKey = "sk-x"; c.ClaudeModel = "claude-sonnet-4-20250514" },
		},
		{
			name:      "google credentials without token file",
			mutate:    func(c *Config) { c.GoogleCredentialsFile = "creds.json"; c.GoogleCalendarName = "Work" },
			wantErr:   true,
			errSubstr: []string{"GOOGLE_TOKEN_FILE"},
		},
		{
			name:      "google credentials without calendar name",
			mutate:    func(c *Config) { c.GoogleCredentialsFile = "creds.json"; c.GoogleTokenFile = "token.json" },
			wantErr:   true,
			errSubstr: []string{"GOOGLE_CALENDAR_NAME"},
		},
		{
			name: "google calendar fully configured",
			mutate: func(c *Config) {
				c.GoogleCredentialsFile = "creds.json"
				c.GoogleTokenFile = "token.json"
				c.GoogleCalendarName = "Work"
			},
		},
		{
			name: "all fields invalid accumulates",
			mutate: func(c *Config) {
				c.DrainSeconds = 0
				c.ShutdownBudgetSeconds = 0
				c.APIPort = 0
				c.DefaultOwner = ""
				c.PriorityConfigVersion = ""
			},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "DEFAULT_OWNER", "PRIORITY_CONFIG"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validBase()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}
