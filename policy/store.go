package policy

import "context"

// Store persists the single configuration record.
type Store interface {
	// GetConfig returns ErrNotInitialized when nothing has been saved.
	GetConfig(ctx context.Context) (*Config, error)
	SaveConfig(ctx context.Context, c *Config) error
}
