package escrow

import (
	"context"
	"errors"

	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/types"
)

// ──────────────────────────────────────────────────
// Engine configuration
// ──────────────────────────────────────────────────

// InitializeConfig stores the engine configuration. It can run once; later
// changes go through UpdateConfig and SetHalted.
func (e *Engine) InitializeConfig(ctx context.Context, c policy.Config) (*policy.Config, error) {
	const op = "initialize_config"

	existing, err := e.store.GetConfig(ctx)
	switch {
	case err == nil && existing != nil:
		return nil, e.fail(ctx, op, id.Nil, ErrAlreadyInitialized, "admin", existing.Admin)
	case err != nil && !errors.Is(err, policy.ErrNotInitialized):
		return nil, e.fail(ctx, op, id.Nil, err)
	}

	if c.Version == 0 {
		c.Version = policy.CurrentVersion
	}
	if err := c.RequireVersion(policy.CurrentVersion); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err)
	}
	if err := c.Validate(); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err)
	}
	c.Entity = types.NewEntityAt(e.clock.Now())

	if err := e.store.SaveConfig(ctx, &c); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err)
	}

	e.logger.Info("escrow config initialized",
		"admin", c.Admin,
		"min_escrow_amount", c.MinEscrowAmount,
		"max_escrow_duration", c.MaxEscrowDuration,
		"max_pause_resume_count", c.MaxPauseResumeCount,
	)
	e.plugins.EmitConfigChanged(ctx, &c)
	return &c, nil
}

// UpdateConfig applies a partial change to the stored configuration. Only
// the configured admin may call it.
func (e *Engine) UpdateConfig(ctx context.Context, signer string, u policy.Update) (*policy.Config, error) {
	const op = "update_config"
	return e.mutateConfig(ctx, op, signer, func(c policy.Config) policy.Config {
		return u.Apply(c)
	})
}

// SetHalted switches the global halt. A halted engine refuses account
// creation, deposits and schedule replacement; withdrawals and closes
// continue so beneficiaries and depositors are never locked out.
func (e *Engine) SetHalted(ctx context.Context, signer string, halted bool) (*policy.Config, error) {
	const op = "set_halted"
	return e.mutateConfig(ctx, op, signer, func(c policy.Config) policy.Config {
		c.Halted = halted
		return c
	})
}

// Config returns the effective configuration: the stored record, or the
// engine defaults before InitializeConfig.
func (e *Engine) Config(ctx context.Context) (*policy.Config, error) {
	c, err := e.config(ctx)
	if err != nil {
		return nil, e.fail(ctx, "config", id.Nil, err)
	}
	return &c, nil
}

func (e *Engine) mutateConfig(ctx context.Context, op, signer string, change func(policy.Config) policy.Config) (*policy.Config, error) {
	stored, err := e.store.GetConfig(ctx)
	if err != nil {
		return nil, e.fail(ctx, op, id.Nil, err)
	}
	if err := stored.RequireVersion(policy.CurrentVersion); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err)
	}
	if signer == "" || signer != stored.Admin {
		return nil, e.fail(ctx, op, id.Nil, ErrNotAdmin, "signer", signer)
	}

	next := change(*stored)
	if err := next.Validate(); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err)
	}
	next.TouchAt(e.clock.Now())

	if err := e.store.SaveConfig(ctx, &next); err != nil {
		return nil, e.fail(ctx, op, id.Nil, err)
	}

	e.logger.Info("escrow config updated", "op", op, "admin", next.Admin, "halted", next.Halted)
	e.plugins.EmitConfigChanged(ctx, &next)
	return &next, nil
}
