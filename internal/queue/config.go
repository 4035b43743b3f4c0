package queue

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Weights is the per-dimension weight table of one configuration version.
// Weights across the dimensions in active use should sum to roughly 1.0;
// unused dimensions carry weight 0 (their scores are still computed and
// surfaced as signals).
type Weights struct {
	Urgency    float64 `yaml:"urgency"`
	Importance float64 `yaml:"importance"`
	Recency    float64 `yaml:"recency"`
	Commitment float64 `yaml:"commitment"`
	Effort     float64 `yaml:"effort"`
}

// Config is a named, versioned weighting policy. Configs are immutable
// values passed explicitly through every call: a new policy is a new named
// Config, never a patched one.
type Config struct {
	Version string  `yaml:"version"`
	Weights Weights `yaml:"weights"`

	// Selection policy.
	MaxItems          int     `yaml:"max_items"`
	MinScore          float64 `yaml:"min_score"`
	MaxItemsPerSource int     `yaml:"max_items_per_source"` // 0 = unbounded

	// Source-specific thresholds.
	CompanyStaleThresholdDays   int `yaml:"company_stale_threshold_days"`
	TaskStaleThresholdDays      int `yaml:"task_stale_threshold_days"`
	CalendarUpcomingWindowHours int `yaml:"calendar_upcoming_window_hours"`
	InboxUrgentWindowHours      int `yaml:"inbox_urgent_window_hours"`
}

// ConfigV1 is the production policy: urgency and importance only, top 8,
// no floor, no per-source cap.
func ConfigV1() Config {
	return Config{
		Version: "v1",
		Weights: Weights{
			Urgency:    0.6,
			Importance: 0.4,
		},
		MaxItems:                    8,
		MinScore:                    0,
		MaxItemsPerSource:           0,
		CompanyStaleThresholdDays:   14,
		TaskStaleThresholdDays:      7,
		CalendarUpcomingWindowHours: 48,
		InboxUrgentWindowHours:      4,
	}
}

// ConfigV2 widens the queue and exercises the floor and per-source diversity
// cap that v1 leaves configured off.
func ConfigV2() Config {
	return Config{
		Version: "v2",
		Weights: Weights{
			Urgency:    0.5,
			Importance: 0.3,
			Recency:    0.1,
			Commitment: 0.1,
		},
		MaxItems:                    10,
		MinScore:                    0.2,
		MaxItemsPerSource:           3,
		CompanyStaleThresholdDays:   14,
		TaskStaleThresholdDays:      7,
		CalendarUpcomingWindowHours: 48,
		InboxUrgentWindowHours:      4,
	}
}

// NamedConfig resolves a built-in configuration version.
func NamedConfig(version string) (Config, error) {
	switch version {
	case "v1":
		return ConfigV1(), nil
	case "v2":
		return ConfigV2(), nil
	}
	return Config{}, fmt.Errorf("unknown priority config version %q", version)
}

// LoadConfigFile reads a deployment-specific configuration from a YAML file.
// The file must be complete; it is validated like the built-ins.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read priority config: %w", err)
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("parse priority config %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid priority config %s: %w", path, err)
	}
	return c, nil
}

// Validate checks that a configuration is usable.
func (c Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("priority config version is required")
	}
	for _, w := range []struct {
		name  string
		value float64
	}{
		{"urgency", c.Weights.Urgency},
		{"importance", c.Weights.Importance},
		{"recency", c.Weights.Recency},
		{"commitment", c.Weights.Commitment},
		{"effort", c.Weights.Effort},
	} {
		if w.value < 0 || w.value > 1 {
			return fmt.Errorf("weight %s = %v out of range [0,1]", w.name, w.value)
		}
	}
	if c.MaxItems <= 0 {
		return fmt.Errorf("max_items must be positive, got %d", c.MaxItems)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("min_score = %v out of range [0,1]", c.MinScore)
	}
	if c.MaxItemsPerSource < 0 {
		return fmt.Errorf("max_items_per_source must be >= 0, got %d", c.MaxItemsPerSource)
	}
	if c.CompanyStaleThresholdDays <= 0 || c.TaskStaleThresholdDays <= 0 {
		return fmt.Errorf("stale thresholds must be positive")
	}
	if c.CalendarUpcomingWindowHours <= 0 || c.InboxUrgentWindowHours <= 0 {
		return fmt.Errorf("source windows must be positive")
	}
	return nil
}
