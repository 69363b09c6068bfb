package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// SettingsNamespace is the key/value namespace the policy settings live under.
const SettingsNamespace = "tool_selfsignuphardlifecycle"

// Setting defaults, shared by the settings parser and the YAML loader.
const (
	DefaultDeletionPeriodDays   = 200
	DefaultSuspensionPeriodDays = 100
	DefaultSuspensionEnabled    = true
	DefaultOverridesEnabled     = false
)

var ErrInvalidConfig = errors.New("signuplifecycle: invalid config")

// Config is the lifecycle policy. It is loaded once at the start of a run and
// treated as immutable until the run finishes.
type Config struct {
	// CoveredAuth lists the auth methods whose accounts are subject to the policy.
	CoveredAuth []string `yaml:"covered_auth"`

	DeletionPeriodDays int `yaml:"deletion_period_days"`

	SuspensionEnabled bool `yaml:"suspension_enabled"`
	// SuspensionPeriodDays is only meaningful when SuspensionEnabled is set.
	// It is expected, but not required, to be shorter than DeletionPeriodDays.
	SuspensionPeriodDays int `yaml:"suspension_period_days"`

	OverridesEnabled bool `yaml:"overrides_enabled"`
	// Profile field ids holding per-user override dates; 0 = unset.
	DeletionOverrideField   int64 `yaml:"deletion_override_field"`
	SuspensionOverrideField int64 `yaml:"suspension_override_field"`

	// Location is the server time zone used for reference days and display.
	Location *time.Location `yaml:"-"`
}

// DefaultConfig returns the policy with the stock periods and no covered auth methods.
func DefaultConfig() Config {
	return Config{
		DeletionPeriodDays:   DefaultDeletionPeriodDays,
		SuspensionEnabled:    DefaultSuspensionEnabled,
		SuspensionPeriodDays: DefaultSuspensionPeriodDays,
		OverridesEnabled:     DefaultOverridesEnabled,
		Location:             time.Local,
	}
}

func (c Config) Validate() error {
	if c.DeletionPeriodDays < 0 {
		return fmt.Errorf("%w: deletion period must not be negative (got %d)", ErrInvalidConfig, c.DeletionPeriodDays)
	}
	if c.SuspensionEnabled && c.SuspensionPeriodDays < 0 {
		return fmt.Errorf("%w: suspension period must not be negative (got %d)", ErrInvalidConfig, c.SuspensionPeriodDays)
	}
	return nil
}

func (c Config) IsSuspensionEnabled() bool { return c.SuspensionEnabled }

// OverridesEnabledAndConfigured reports whether overrides are switched on and
// at least one override field is selected. An enabled flag without any field
// behaves like disabled overrides.
func (c Config) OverridesEnabledAndConfigured() bool {
	if !c.OverridesEnabled {
		return false
	}
	return c.DeletionOverrideField > 0 || c.SuspensionOverrideField > 0
}

// Covers reports whether accounts of the given auth method fall under the policy.
func (c Config) Covers(auth string) bool {
	for _, a := range c.CoveredAuth {
		if a == auth {
			return true
		}
	}
	return false
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// ParseSettings builds a Config from the plugin's key/value settings.
// Missing keys keep their defaults. Field ids that are not positive integers
// are treated as unset.
func ParseSettings(kv map[string]string, loc *time.Location) (Config, error) {
	cfg := DefaultConfig()
	if loc != nil {
		cfg.Location = loc
	}

	if v, ok := kv["coveredauth"]; ok {
		cfg.CoveredAuth = splitCSV(v)
	}
	if v, ok := kv["userdeletionperiod"]; ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("%w: userdeletionperiod %q: %v", ErrInvalidConfig, v, err)
		}
		cfg.DeletionPeriodDays = n
	}
	// Older installs stored the flag as "enablesuspension".
	if v, ok := kv["enableusersuspension"]; ok {
		cfg.SuspensionEnabled = parseFlag(v)
	} else if v, ok := kv["enablesuspension"]; ok {
		cfg.SuspensionEnabled = parseFlag(v)
	}
	if v, ok := kv["usersuspensionperiod"]; ok && strings.TrimSpace(v) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("%w: usersuspensionperiod %q: %v", ErrInvalidConfig, v, err)
		}
		cfg.SuspensionPeriodDays = n
	}
	if v, ok := kv["enableuseroverrides"]; ok {
		cfg.OverridesEnabled = parseFlag(v)
	}
	cfg.DeletionOverrideField = parseFieldID(kv["userdeletionoverridefield"])
	cfg.SuspensionOverrideField = parseFieldID(kv["usersuspensionoverridefield"])

	return cfg, cfg.Validate()
}

// LoadConfigFile reads a YAML policy file. Keys absent from the file keep their defaults.
func LoadConfigFile(path string, loc *time.Location) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read policy file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: parse policy file %s: %v", ErrInvalidConfig, path, err)
	}
	cfg.Location = time.Local
	if loc != nil {
		cfg.Location = loc
	}
	return cfg, cfg.Validate()
}

// ConfigSource loads the current policy. It is consulted once per run.
type ConfigSource interface {
	LoadConfig(ctx context.Context) (Config, error)
}

// StaticConfig serves a fixed policy.
type StaticConfig Config

func (s StaticConfig) LoadConfig(ctx context.Context) (Config, error) {
	_ = ctx
	cfg := Config(s)
	return cfg, cfg.Validate()
}

// FileConfigSource re-reads a YAML policy file on every run, so edits apply
// without a restart.
type FileConfigSource struct {
	Path     string
	Location *time.Location
}

func (f FileConfigSource) LoadConfig(ctx context.Context) (Config, error) {
	_ = ctx
	return LoadConfigFile(f.Path, f.Location)
}

func splitCSV(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseFlag(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func parseFieldID(v string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
