package escrow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/xraph/escrow/account"
	"github.com/xraph/escrow/asset"
	"github.com/xraph/escrow/clock"
	"github.com/xraph/escrow/id"
	"github.com/xraph/escrow/plugin"
	"github.com/xraph/escrow/policy"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/token"
	tokenmem "github.com/xraph/escrow/token/memory"
	"github.com/xraph/escrow/withdrawal"
)

// Version is the escrow library version.
const Version = "0.1.0"

// Engine is the release engine. Every mutating operation runs under a
// per-account lock, evaluates against one clock reading, moves tokens as its
// last external step and persists the result in a single commit.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	clock      clock.Clock
	tokens     token.Ledger
	assets     asset.Registry
	network    asset.NetworkPolicy
	thresholds withdrawal.Thresholds
	defaults   policy.Config

	// replayGuard rejects a second mutation of an account in the same slot.
	replayGuard bool
	locks       accountLocks
}

// New creates a new Engine instance.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		plugins:     plugin.NewRegistry(),
		logger:      slog.Default(),
		clock:       clock.NewSystem(),
		tokens:      tokenmem.New(),
		assets:      asset.NewStaticRegistry(),
		network:     asset.SandboxPolicy(),
		thresholds:  withdrawal.DefaultThresholds(),
		defaults:    policy.Default(),
		replayGuard: true,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock sets the time source. Defaults to the system clock.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithTokenLedger sets the token ledger funds move through. Defaults to an
// in-process ledger.
func WithTokenLedger(l token.Ledger) Option {
	return func(e *Engine) {
		e.tokens = l
	}
}

// WithAssets sets the asset metadata registry.
func WithAssets(r asset.Registry) Option {
	return func(e *Engine) {
		e.assets = r
	}
}

// WithNetworkPolicy sets the asset allow-list. Defaults to a sandbox that
// accepts any asset.
func WithNetworkPolicy(p asset.NetworkPolicy) Option {
	return func(e *Engine) {
		e.network = p
	}
}

// WithThresholds sets the minimum withdrawal per asset precision.
func WithThresholds(t withdrawal.Thresholds) Option {
	return func(e *Engine) {
		e.thresholds = t
	}
}

// WithPolicy sets the configuration used until one is initialized in the
// store.
func WithPolicy(c policy.Config) Option {
	return func(e *Engine) {
		e.defaults = c
	}
}

// WithReplayGuard toggles the same-slot replay guard. The per-account lock
// is always held; the guard additionally rejects double submission within
// one slot.
func WithReplayGuard(enabled bool) Option {
	return func(e *Engine) {
		e.replayGuard = enabled
	}
}

// Start migrates the store and initializes plugins.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	e.plugins.EmitInit(ctx, e)

	e.logger.Info("escrow engine started",
		"network", e.network.Network,
		"replay_guard", e.replayGuard,
		"plugins", e.plugins.Count(),
	)

	return nil
}

// Stop shuts down the engine and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Clock returns the engine's time source.
func (e *Engine) Clock() clock.Clock { return e.clock }

// ──────────────────────────────────────────────────
// Shared operation plumbing
// ──────────────────────────────────────────────────

// accountLocks hands out one mutex per account, dropping entries once no
// operation holds or waits on them.
type accountLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *accountLocks) lock(accountID id.AccountID) func() {
	key := accountID.String()

	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*lockEntry)
	}
	entry, ok := l.m[key]
	if !ok {
		entry = &lockEntry{}
		l.m[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.m, key)
		}
		l.mu.Unlock()
	}
}

// fail wraps err with operation context, logs it and notifies plugins.
func (e *Engine) fail(ctx context.Context, op string, accountID id.AccountID, err error, kv ...any) error {
	if err == nil {
		return nil
	}
	if !accountID.IsNil() {
		kv = append([]any{"account_id", accountID.String()}, kv...)
	}
	wrapped := opError(op, err, kv...)

	kind := ErrorKind(err)
	level := slog.LevelDebug
	if kind == KindArithmetic || kind == KindExternal || kind == KindUnknown {
		level = slog.LevelError
	}
	e.logger.Log(ctx, level, "escrow operation failed",
		append([]any{"op", op, "kind", kind, "error", err}, kv...)...)

	e.plugins.EmitOperationFailed(ctx, op, accountID.String(), wrapped)
	return wrapped
}

// config returns the stored configuration, or the engine defaults when none
// has been initialized.
func (e *Engine) config(ctx context.Context) (policy.Config, error) {
	c, err := e.store.GetConfig(ctx)
	if errors.Is(err, policy.ErrNotInitialized) {
		return e.defaults, nil
	}
	if err != nil {
		return policy.Config{}, err
	}
	if err := c.RequireVersion(policy.CurrentVersion); err != nil {
		return policy.Config{}, err
	}
	return *c, nil
}

// guardReplay rejects a mutation in the slot the account was last mutated in.
func (e *Engine) guardReplay(a *account.Account, slot uint64) error {
	if e.replayGuard && a.LastOperationSlot == slot {
		return ErrConcurrentOperation
	}
	return nil
}

// frozen returns ErrFrozen when any of the given token accounts is frozen.
func (e *Engine) frozen(ctx context.Context, assetID string, accounts ...string) error {
	for _, acct := range accounts {
		if acct == "" {
			continue
		}
		f, err := e.assets.Frozen(ctx, assetID, acct)
		if err != nil {
			return err
		}
		if f {
			return fmt.Errorf("%w: %s", ErrFrozen, acct)
		}
	}
	return nil
}

// vaultAuthority is the proof of authority over an account's vault.
func vaultAuthority(a *account.Account) token.Authority {
	return token.Authority{Owner: a.VaultAddress(), Signer: a.VaultSigner()}
}

// emitStatus notifies plugins of a committed transition.
func (e *Engine) emitStatus(ctx context.Context, a *account.Account, from account.Status) {
	if from == a.Status {
		return
	}
	e.logger.Info("escrow status changed",
		"account_id", a.ID.String(),
		"from", from,
		"to", a.Status,
	)
	e.plugins.EmitStatusChanged(ctx, a, from, a.Status)
}
