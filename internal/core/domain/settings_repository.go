package domain

import "context"

// SettingsRepository persists settings per chain. Every chain has its own
// independent values, reading a chain never configured returns defaults.
type SettingsRepository interface {
	// GetSettings returns the settings of the given chain.
	GetSettings(ctx context.Context, chainID uint64) (*Settings, error)
	// UpdateSettings applies updateFn to the chain's settings and persists the
	// result. Nothing is persisted if updateFn fails.
	UpdateSettings(
		ctx context.Context,
		chainID uint64,
		updateFn func(s *Settings) (*Settings, error),
	) error
}
