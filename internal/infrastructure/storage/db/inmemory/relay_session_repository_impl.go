package inmemory

import (
	"context"

	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
)

type RelaySessionRepositoryImpl struct {
	store *relaySessionInmemoryStore
}

// NewRelaySessionRepositoryImpl returns a new empty RelaySessionRepositoryImpl
func NewRelaySessionRepositoryImpl(
	store *relaySessionInmemoryStore,
) domain.RelaySessionRepository {
	return &RelaySessionRepositoryImpl{store}
}

func (r RelaySessionRepositoryImpl) GetSession(
	ctx context.Context,
) (*domain.RelaySession, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	if r.store.session == nil {
		return nil, domain.ErrRelaySessionNotFound
	}

	session := *r.store.session
	session.Accounts = append([]string{}, r.store.session.Accounts...)
	return &session, nil
}

func (r RelaySessionRepositoryImpl) SaveSession(
	ctx context.Context, session domain.RelaySession,
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	session.Accounts = append([]string{}, session.Accounts...)
	r.store.session = &session
	return nil
}

func (r RelaySessionRepositoryImpl) DeleteSession(ctx context.Context) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	r.store.session = nil
	return nil
}
