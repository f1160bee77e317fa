package ports

import (
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
)

// RepoManager holds the repositories of the persisted user data.
type RepoManager interface {
	SettingsRepository() domain.SettingsRepository
	RelaySessionRepository() domain.RelaySessionRepository
	Close()
}
