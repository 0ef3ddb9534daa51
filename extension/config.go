package extension

import (
	"time"

	"github.com/xraph/escrow/policy"
)

// Config holds the escrow extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.escrow" or "escrow" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableMetrics skips registering the go-utils metrics plugin.
	DisableMetrics bool `json:"disable_metrics" mapstructure:"disable_metrics" yaml:"disable_metrics"`

	// DisableReplayGuard turns off same-slot replay rejection. Accounts are
	// still locked per operation.
	DisableReplayGuard bool `json:"disable_replay_guard" mapstructure:"disable_replay_guard" yaml:"disable_replay_guard"`

	// Admin is the configuration admin. When set, the engine configuration
	// is initialized on start if the store holds none yet.
	Admin string `json:"admin" mapstructure:"admin" yaml:"admin"`

	// MinEscrowAmount is the smallest total an account may be created with
	// (default: 1).
	MinEscrowAmount uint64 `json:"min_escrow_amount" mapstructure:"min_escrow_amount" yaml:"min_escrow_amount"`

	// MaxEscrowDuration caps a schedule's window (default: 365 days).
	MaxEscrowDuration time.Duration `json:"max_escrow_duration" mapstructure:"max_escrow_duration" yaml:"max_escrow_duration"`

	// MaxPauseResumeCount caps pauses and resumes per account (default: 3).
	MaxPauseResumeCount uint8 `json:"max_pause_resume_count" mapstructure:"max_pause_resume_count" yaml:"max_pause_resume_count"`

	// AllowCustom enables custom release schedules.
	AllowCustom bool `json:"allow_custom" mapstructure:"allow_custom" yaml:"allow_custom"`

	// RequirePresetDuration limits linear windows to the preset durations.
	RequirePresetDuration bool `json:"require_preset_duration" mapstructure:"require_preset_duration" yaml:"require_preset_duration"`

	// GroveDatabase is the name of a grove.DB registered in the DI container.
	// When set, the extension resolves this named database and auto-constructs
	// the appropriate store based on the driver type (pg/sqlite/mongo).
	// When empty and WithGroveDatabase was called, the default (unnamed) DB is used.
	GroveDatabase string `json:"grove_database" mapstructure:"grove_database" yaml:"grove_database"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	d := policy.Default()
	return Config{
		MinEscrowAmount:     d.MinEscrowAmount,
		MaxEscrowDuration:   d.MaxEscrowDuration,
		MaxPauseResumeCount: d.MaxPauseResumeCount,
	}
}

// Policy returns the engine configuration described by c.
func (c Config) Policy() policy.Config {
	p := policy.Default()
	p.Admin = c.Admin
	p.MinEscrowAmount = c.MinEscrowAmount
	p.MaxEscrowDuration = c.MaxEscrowDuration
	p.MaxPauseResumeCount = c.MaxPauseResumeCount
	p.AllowCustom = c.AllowCustom
	p.RequirePresetDuration = c.RequirePresetDuration
	return p
}
