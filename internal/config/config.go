// Package config defines the configuration surface listed in spec.md §6,
// loadable from YAML the way the teacher's core/scheduler.Config is
// (struct tags, plain gopkg.in/yaml.v3 unmarshalling — no bespoke config
// framework).
package config

import (
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// RetryConfig controls the resilience layer's retry behaviour.
type RetryConfig struct {
	MaxAttempts       int     `yaml:"maxAttempts"`
	BaseDelayMS       int     `yaml:"baseDelay"`
	MaxDelayMS        int     `yaml:"maxDelay"`
	BackoffMultiplier float64 `yaml:"backoffMultiplier"`
	JitterMin         float64 `yaml:"jitterMin"`
	JitterMax         float64 `yaml:"jitterMax"`
}

// DefaultRetryConfig matches spec.md §4.2: 3 attempts, base 1000ms,
// multiplier 2, cap 10000ms, full jitter 0.5-1.0.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BaseDelayMS:       1000,
		MaxDelayMS:        10000,
		BackoffMultiplier: 2,
		JitterMin:         0.5,
		JitterMax:         1.0,
	}
}

func (c RetryConfig) BaseDelay() time.Duration { return time.Duration(c.BaseDelayMS) * time.Millisecond }
func (c RetryConfig) MaxDelay() time.Duration  { return time.Duration(c.MaxDelayMS) * time.Millisecond }

// CircuitConfig controls the per-adapter circuit breaker.
type CircuitConfig struct {
	FailureThreshold int `yaml:"failureThreshold"`
	ResetTimeoutMS   int `yaml:"resetTimeoutMs"`
}

// DefaultCircuitConfig matches spec.md §4.2: 5 consecutive qualifying
// failures open the breaker, 60s reset timeout.
func DefaultCircuitConfig() CircuitConfig {
	return CircuitConfig{FailureThreshold: 5, ResetTimeoutMS: 60000}
}

func (c CircuitConfig) ResetTimeout() time.Duration {
	return time.Duration(c.ResetTimeoutMS) * time.Millisecond
}

// ValidationConfig controls the ValidationPipeline's thresholds.
type ValidationConfig struct {
	MinPublications             int  `yaml:"minPublications"`
	MaxRetractions               int  `yaml:"maxRetractions"`
	MinRecentPublications        int  `yaml:"minRecentPublications"`
	RecentYears                   int  `yaml:"recentYears"`
	CheckInstitutionalConflicts  bool `yaml:"checkInstitutionalConflicts"`
	CheckCoAuthorConflicts       bool `yaml:"checkCoAuthorConflicts"`
	CollaborationYears           int  `yaml:"collaborationYears"`
}

// DefaultValidationConfig matches spec.md §4.5's defaults.
func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{
		MinPublications:            5,
		MaxRetractions:             0,
		MinRecentPublications:      2,
		RecentYears:                5,
		CheckInstitutionalConflicts: true,
		CheckCoAuthorConflicts:      true,
		CollaborationYears:         3,
	}
}

// SearchConfig controls a single federated search dispatch.
type SearchConfig struct {
	EnabledDatabases      []string `yaml:"enabledDatabases"`
	PubmedAPIKey          string   `yaml:"pubmedApiKey"`
	ElsevierAPIKey        string   `yaml:"elsevierApiKey"`
	MaxResultsPerDatabase int      `yaml:"maxResultsPerDatabase"`
	SearchTimeoutMS       int      `yaml:"searchTimeoutMs"`
	Retry                 RetryConfig   `yaml:"retry"`
	Circuit               CircuitConfig `yaml:"circuit"`
}

// DefaultSearchConfig matches spec.md §6's table defaults.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		EnabledDatabases:      []string{"PUBMED", "ELSEVIER", "WILEY", "TAYLOR_FRANCIS"},
		MaxResultsPerDatabase: 100,
		SearchTimeoutMS:       300000,
		Retry:                 DefaultRetryConfig(),
		Circuit:               DefaultCircuitConfig(),
	}
}

func (c SearchConfig) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutMS) * time.Millisecond
}

// Config aggregates the full configuration surface from spec.md §6.
type Config struct {
	Search     SearchConfig     `yaml:"search"`
	Validation ValidationConfig `yaml:"validation"`
}

// Default returns the configuration the core uses absent an explicit
// override, matching every default named in spec.md.
func Default() Config {
	return Config{Search: DefaultSearchConfig(), Validation: DefaultValidationConfig()}
}

// Load unmarshals YAML bytes into a Config, starting from Default() so any
// field the document omits keeps its spec-mandated default.
func Load(data []byte) (Config, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnvOverrides layers deployment environment variables onto cfg.
// Environment variables are always strings, so each override goes through
// cast's permissive conversion rather than strconv — a malformed value
// (e.g. MANUSCRIPT_MATCH_SEARCH_TIMEOUT_MS="unset") is coerced to the zero
// value instead of panicking or requiring a hand-rolled parse-and-ignore.
// env is keyed the way os.Environ-derived maps are built by the caller
// (cmd/reviewcore-probe), not read from os.Getenv directly, so this stays
// testable without mutating process environment.
func ApplyEnvOverrides(cfg Config, env map[string]string) Config {
	if v, ok := env["MANUSCRIPT_MATCH_PUBMED_API_KEY"]; ok {
		cfg.Search.PubmedAPIKey = v
	}
	if v, ok := env["MANUSCRIPT_MATCH_ELSEVIER_API_KEY"]; ok {
		cfg.Search.ElsevierAPIKey = v
	}
	if v, ok := env["MANUSCRIPT_MATCH_MAX_RESULTS_PER_DATABASE"]; ok {
		cfg.Search.MaxResultsPerDatabase = cast.ToInt(v)
	}
	if v, ok := env["MANUSCRIPT_MATCH_SEARCH_TIMEOUT_MS"]; ok {
		cfg.Search.SearchTimeoutMS = cast.ToInt(v)
	}
	if v, ok := env["MANUSCRIPT_MATCH_MIN_PUBLICATIONS"]; ok {
		cfg.Validation.MinPublications = cast.ToInt(v)
	}
	if v, ok := env["MANUSCRIPT_MATCH_MAX_RETRACTIONS"]; ok {
		cfg.Validation.MaxRetractions = cast.ToInt(v)
	}
	if v, ok := env["MANUSCRIPT_MATCH_CHECK_INSTITUTIONAL_CONFLICTS"]; ok {
		cfg.Validation.CheckInstitutionalConflicts = cast.ToBool(v)
	}
	if v, ok := env["MANUSCRIPT_MATCH_CHECK_COAUTHOR_CONFLICTS"]; ok {
		cfg.Validation.CheckCoAuthorConflicts = cast.ToBool(v)
	}
	return cfg
}
