// Package extension provides the Forge extension adapter for escrow.
//
// It implements the forge.Extension interface to integrate the escrow
// engine into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.escrow" or "escrow" keys.
package extension

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/forge"
	"github.com/xraph/grove"
	"github.com/xraph/vessel"

	"github.com/xraph/escrow"
	"github.com/xraph/escrow/observability"
	"github.com/xraph/escrow/store"
	"github.com/xraph/escrow/store/memory"
	"github.com/xraph/escrow/store/mongo"
	"github.com/xraph/escrow/store/postgres"
	"github.com/xraph/escrow/store/sqlite"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "escrow"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Time-locked payment release engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = escrow.Version

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the escrow engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *escrow.Engine
	store      store.Store
	engineOpts []escrow.Option
	useGrove   bool
}

// New creates a new escrow Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying escrow engine.
// This is nil until Register is called.
func (e *Extension) Engine() *escrow.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the escrow engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil && (e.useGrove || e.config.GroveDatabase != "") {
		s, err := e.groveStore(fapp.Container())
		if err != nil {
			return err
		}
		e.store = s
	}

	// Use memory store if no store was provided or resolved.
	if e.store == nil {
		e.store = memory.New()
	}

	opts := e.buildEngineOpts(fapp)
	e.engine = escrow.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*escrow.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("escrow: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	if e.config.Admin != "" {
		_, err := e.engine.InitializeConfig(ctx, e.config.Policy())
		if err != nil && !errors.Is(err, escrow.ErrAlreadyInitialized) {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("escrow: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs escrow.Option values from the resolved config.
func (e *Extension) buildEngineOpts(fapp forge.App) []escrow.Option {
	opts := make([]escrow.Option, 0, len(e.engineOpts)+3)

	opts = append(opts, escrow.WithPolicy(e.config.Policy()))
	if e.config.DisableReplayGuard {
		opts = append(opts, escrow.WithReplayGuard(false))
	}
	if !e.config.DisableMetrics && fapp.Metrics() != nil {
		opts = append(opts, escrow.WithPlugin(observability.NewMetricsExtension(fapp.Metrics())))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// groveStore resolves a grove.DB from the container and wraps it in the
// store matching its driver.
func (e *Extension) groveStore(c forge.Container) (store.Store, error) {
	var (
		db  *grove.DB
		err error
	)
	if e.config.GroveDatabase != "" {
		db, err = vessel.InjectNamed[*grove.DB](c, e.config.GroveDatabase)
	} else {
		db, err = vessel.Inject[*grove.DB](c)
	}
	if err != nil {
		return nil, fmt.Errorf("escrow: resolve grove database %q: %w", e.config.GroveDatabase, err)
	}

	driver := db.Driver().Name()
	e.Logger().Debug("escrow: using grove store",
		forge.F("database", e.config.GroveDatabase),
		forge.F("driver", driver),
	)

	switch driver {
	case "pg":
		return postgres.New(db), nil
	case "sqlite":
		return sqlite.New(db), nil
	case "mongo":
		return mongo.New(db), nil
	default:
		return nil, fmt.Errorf("escrow: unsupported grove driver %q", driver)
	}
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("escrow: configuration is required but not found in config files; " +
				"ensure 'extensions.escrow' or 'escrow' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("escrow: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("disable_metrics", e.config.DisableMetrics),
		forge.F("admin", e.config.Admin),
		forge.F("min_escrow_amount", e.config.MinEscrowAmount),
		forge.F("max_escrow_duration", e.config.MaxEscrowDuration),
		forge.F("max_pause_resume_count", e.config.MaxPauseResumeCount),
		forge.F("grove_database", e.config.GroveDatabase),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	for _, key := range []string{"extensions.escrow", "escrow"} {
		if !cm.IsSet(key) {
			continue
		}
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("escrow: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("escrow: loaded config from file",
			forge.F("key", key),
		)
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MinEscrowAmount == 0 {
		cfg.MinEscrowAmount = defaults.MinEscrowAmount
	}
	if cfg.MaxEscrowDuration == 0 {
		cfg.MaxEscrowDuration = defaults.MaxEscrowDuration
	}
	if cfg.MaxPauseResumeCount == 0 {
		cfg.MaxPauseResumeCount = defaults.MaxPauseResumeCount
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	if programmaticConfig.DisableMetrics {
		yamlConfig.DisableMetrics = true
	}
	if programmaticConfig.DisableReplayGuard {
		yamlConfig.DisableReplayGuard = true
	}
	if programmaticConfig.AllowCustom {
		yamlConfig.AllowCustom = true
	}
	if programmaticConfig.RequirePresetDuration {
		yamlConfig.RequirePresetDuration = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.Admin == "" {
		yamlConfig.Admin = programmaticConfig.Admin
	}
	if yamlConfig.GroveDatabase == "" {
		yamlConfig.GroveDatabase = programmaticConfig.GroveDatabase
	}

	// Numeric fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.MinEscrowAmount == 0 {
		yamlConfig.MinEscrowAmount = programmaticConfig.MinEscrowAmount
	}
	if yamlConfig.MaxEscrowDuration == 0 {
		yamlConfig.MaxEscrowDuration = programmaticConfig.MaxEscrowDuration
	}
	if yamlConfig.MaxPauseResumeCount == 0 {
		yamlConfig.MaxPauseResumeCount = programmaticConfig.MaxPauseResumeCount
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
