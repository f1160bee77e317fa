package inmemory

import (
	"sync"

	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

type settingsInmemoryStore struct {
	settings map[uint64]map[string]string
	locker   *sync.RWMutex
}

type relaySessionInmemoryStore struct {
	session *domain.RelaySession
	locker  *sync.RWMutex
}

type RepoManager struct {
	settingsRepository     domain.SettingsRepository
	relaySessionRepository domain.RelaySessionRepository
}

func NewRepoManager() ports.RepoManager {
	settingsStore := &settingsInmemoryStore{
		settings: make(map[uint64]map[string]string),
		locker:   &sync.RWMutex{},
	}
	sessionStore := &relaySessionInmemoryStore{
		locker: &sync.RWMutex{},
	}

	return &RepoManager{
		settingsRepository:     NewSettingsRepositoryImpl(settingsStore),
		relaySessionRepository: NewRelaySessionRepositoryImpl(sessionStore),
	}
}

func (d *RepoManager) SettingsRepository() domain.SettingsRepository {
	return d.settingsRepository
}

func (d *RepoManager) RelaySessionRepository() domain.RelaySessionRepository {
	return d.relaySessionRepository
}

func (d *RepoManager) Close() {}
