// Package policy holds the engine-wide configuration record: creation
// limits, the pause cap, the global halt switch and the schema version.
package policy

import (
	"errors"
	"fmt"
	"time"

	"github.com/xraph/escrow/pause"
	"github.com/xraph/escrow/schedule"
	"github.com/xraph/escrow/types"
)

// CurrentVersion is the configuration schema version this engine writes.
const CurrentVersion uint32 = 1

var (
	ErrNotInitialized      = errors.New("escrow: configuration not initialized")
	ErrAlreadyInitialized  = errors.New("escrow: configuration already initialized")
	ErrIncompatibleVersion = errors.New("escrow: incompatible configuration version")
	ErrHalted              = errors.New("escrow: engine halted")
	ErrNotAdmin            = errors.New("escrow: signer is not the configuration admin")
	ErrInvalidConfig       = errors.New("escrow: invalid configuration")
)

// Config is the persisted engine configuration.
type Config struct {
	types.Entity
	Admin               string        `json:"admin"`
	MinEscrowAmount     uint64        `json:"min_escrow_amount"`
	MaxEscrowDuration   time.Duration `json:"max_escrow_duration"`
	MaxPauseResumeCount uint8         `json:"max_pause_resume_count"`
	// Halted blocks creation, deposits and schedule replacement.
	Halted                bool   `json:"halted"`
	AllowCustom           bool   `json:"allow_custom"`
	RequirePresetDuration bool   `json:"require_preset_duration"`
	Version               uint32 `json:"version"`
}

// Default returns the configuration used when none has been stored.
func Default() Config {
	return Config{
		MinEscrowAmount:     1,
		MaxEscrowDuration:   365 * 24 * time.Hour,
		MaxPauseResumeCount: pause.DefaultCap,
		Version:             CurrentVersion,
	}
}

// Limits returns the schedule validation limits implied by c.
func (c Config) Limits() schedule.Limits {
	return schedule.Limits{
		MaxDuration:   c.MaxEscrowDuration,
		AllowCustom:   c.AllowCustom,
		RequirePreset: c.RequirePresetDuration,
	}
}

// RequireVersion fails unless the stored version equals v.
func (c Config) RequireVersion(v uint32) error {
	if c.Version != v {
		return fmt.Errorf("%w: stored %d, engine %d", ErrIncompatibleVersion, c.Version, v)
	}
	return nil
}

// Validate checks the configuration is usable.
func (c Config) Validate() error {
	switch {
	case c.Admin == "":
		return fmt.Errorf("%w: admin is required", ErrInvalidConfig)
	case c.MinEscrowAmount == 0:
		return fmt.Errorf("%w: min escrow amount must be positive", ErrInvalidConfig)
	case c.MaxEscrowDuration <= 0:
		return fmt.Errorf("%w: max escrow duration must be positive", ErrInvalidConfig)
	case c.MaxPauseResumeCount == 0:
		return fmt.Errorf("%w: pause/resume cap must be positive", ErrInvalidConfig)
	}
	return nil
}

// Update is a partial configuration change. Nil fields are left unchanged.
type Update struct {
	MinEscrowAmount       *uint64
	MaxEscrowDuration     *time.Duration
	MaxPauseResumeCount   *uint8
	AllowCustom           *bool
	RequirePresetDuration *bool
	Admin                 *string
}

// Apply returns c with u applied.
func (u Update) Apply(c Config) Config {
	if u.MinEscrowAmount != nil {
		c.MinEscrowAmount = *u.MinEscrowAmount
	}
	if u.MaxEscrowDuration != nil {
		c.MaxEscrowDuration = *u.MaxEscrowDuration
	}
	if u.MaxPauseResumeCount != nil {
		c.MaxPauseResumeCount = *u.MaxPauseResumeCount
	}
	if u.AllowCustom != nil {
		c.AllowCustom = *u.AllowCustom
	}
	if u.RequirePresetDuration != nil {
		c.RequirePresetDuration = *u.RequirePresetDuration
	}
	if u.Admin != nil {
		c.Admin = *u.Admin
	}
	return c
}
