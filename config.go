package modloader

import (
	"fmt"
	"strings"

	"github.com/golobby/config/v3"
)

// Feeder populates a configuration struct from one source.
type Feeder = config.Feeder

// DefaultPhases is the phase sequence used when none is configured.
var DefaultPhases = []string{"pre-init", "init", "post-init"}

// SessionConfig configures one loading session.
type SessionConfig struct {
	SessionName     string            `yaml:"sessionName" toml:"session_name" json:"sessionName" env:"SESSION_NAME" default:"default" desc:"Name used in reports and event sources"`
	Phases          []string          `yaml:"phases" toml:"phases" json:"phases" env:"PHASES" default:"[\"pre-init\",\"init\",\"post-init\"]" required:"true" desc:"Load phases in execution order"`
	ActivePlatform  string            `yaml:"activePlatform" toml:"active_platform" json:"activePlatform" env:"PLATFORM" default:"both" desc:"Platform the host is running: a, b, both or an alias"`
	PlatformAliases map[string]string `yaml:"platformAliases" toml:"platform_aliases" json:"platformAliases" desc:"Extra platform tags, mapped onto a, b, both or none"`
	HostID          string            `yaml:"hostId" toml:"host_id" json:"hostId" env:"HOST_ID" default:"ModLoader" required:"true" desc:"Id of the built-in host mod that others may depend on"`
	HostVersion     string            `yaml:"hostVersion" toml:"host_version" json:"hostVersion" env:"HOST_VERSION" default:"1.0.0.0" desc:"Version reported for the host mod"`
}

// NewSessionConfig returns a SessionConfig with defaults applied.
func NewSessionConfig() *SessionConfig {
	cfg := &SessionConfig{}
	_ = ProcessConfigDefaults(cfg)
	return cfg
}

// Validate checks the phase list, the active platform and the host version.
// A session cannot start with an invalid configuration.
func (c *SessionConfig) Validate() error {
	if len(c.Phases) == 0 {
		return ErrNoPhases
	}
	seen := make(map[string]bool, len(c.Phases))
	for i, phase := range c.Phases {
		phase = strings.TrimSpace(phase)
		if phase == "" {
			return fmt.Errorf("%w: position %d", ErrEmptyPhaseName, i)
		}
		if seen[phase] {
			return fmt.Errorf("%w: %s", ErrDuplicatePhase, phase)
		}
		seen[phase] = true
	}
	if _, err := c.Platform(); err != nil {
		return err
	}
	if _, err := ParseVersion(c.HostVersion); err != nil {
		return fmt.Errorf("host version: %w", err)
	}
	return nil
}

// Platform resolves ActivePlatform. None is rejected because no mod
// could ever run.
func (c *SessionConfig) Platform() (Platform, error) {
	p, err := ParsePlatform(c.ActivePlatform, c.PlatformAliases)
	if err != nil {
		return PlatformNone, fmt.Errorf("%w: %w", ErrInvalidActivePlat, err)
	}
	if p == PlatformNone {
		return PlatformNone, fmt.Errorf("%w: %q", ErrInvalidActivePlat, c.ActivePlatform)
	}
	return p, nil
}

// PhaseList returns the configured phases with surrounding space removed.
func (c *SessionConfig) PhaseList() []string {
	out := make([]string, len(c.Phases))
	for i, p := range c.Phases {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// LoadSessionConfig builds a SessionConfig from the given feeders, in
// order, then applies defaults and validates the result.
func LoadSessionConfig(feeders ...Feeder) (*SessionConfig, error) {
	cfg := &SessionConfig{}
	if len(feeders) > 0 {
		builder := config.New()
		for _, f := range feeders {
			builder.AddFeeder(f)
		}
		builder.AddStruct(cfg)
		if err := builder.Feed(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrConfigFeederError, err)
		}
	}
	if err := validateSessionConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validateSessionConfig applies defaults and validates cfg. An unset phase
// list takes the default, but a list that was set to empty is rejected.
func validateSessionConfig(cfg *SessionConfig) error {
	if cfg.Phases != nil && len(cfg.Phases) == 0 {
		return fmt.Errorf("%w: %w", ErrConfigValidationFailed, ErrNoPhases)
	}
	return ValidateConfig(cfg)
}
