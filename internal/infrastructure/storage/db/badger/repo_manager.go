package dbbadger

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	"github.com/timshannon/badgerhold/v4"
)

type repoManager struct {
	settingsStore *badgerhold.Store
	sessionStore  *badgerhold.Store

	settingsRepository     domain.SettingsRepository
	relaySessionRepository domain.RelaySessionRepository
}

// NewRepoManager opens (or creates if not exists) the badger stores on disk.
// The stores are kept in memory if baseDbDir is empty.
func NewRepoManager(baseDbDir string, logger badger.Logger) (ports.RepoManager, error) {
	var settingsDir, sessionDir string
	if len(baseDbDir) > 0 {
		settingsDir = filepath.Join(baseDbDir, "settings")
		sessionDir = filepath.Join(baseDbDir, "sessions")
	}

	settingsStore, err := createDb(settingsDir, logger)
	if err != nil {
		return nil, fmt.Errorf("opening settings db: %w", err)
	}

	sessionStore, err := createDb(sessionDir, logger)
	if err != nil {
		settingsStore.Close()
		return nil, fmt.Errorf("opening sessions db: %w", err)
	}

	return &repoManager{
		settingsStore:          settingsStore,
		sessionStore:           sessionStore,
		settingsRepository:     NewSettingsRepositoryImpl(settingsStore),
		relaySessionRepository: NewRelaySessionRepositoryImpl(sessionStore),
	}, nil
}

func (r *repoManager) SettingsRepository() domain.SettingsRepository {
	return r.settingsRepository
}

func (r *repoManager) RelaySessionRepository() domain.RelaySessionRepository {
	return r.relaySessionRepository
}

func (r *repoManager) Close() {
	r.settingsStore.Close()
	r.sessionStore.Close()
}

func createDb(dbDir string, logger badger.Logger) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			for {
				<-ticker.C
				if err := db.Badger().RunValueLogGC(0.5); err != nil &&
					err != badger.ErrNoRewrite {
					log.Error(err)
				}
			}
		}()
	}

	return db, nil
}
