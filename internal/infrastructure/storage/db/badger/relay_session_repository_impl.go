package dbbadger

import (
	"context"

	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const relaySessionKey = "relay-session"

type relaySessionRepositoryImpl struct {
	store *badgerhold.Store
}

func NewRelaySessionRepositoryImpl(
	store *badgerhold.Store,
) domain.RelaySessionRepository {
	return relaySessionRepositoryImpl{store}
}

func (r relaySessionRepositoryImpl) GetSession(
	ctx context.Context,
) (*domain.RelaySession, error) {
	var session domain.RelaySession
	if err := r.store.Get(relaySessionKey, &session); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, domain.ErrRelaySessionNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (r relaySessionRepositoryImpl) SaveSession(
	ctx context.Context, session domain.RelaySession,
) error {
	return r.store.Upsert(relaySessionKey, session)
}

func (r relaySessionRepositoryImpl) DeleteSession(ctx context.Context) error {
	if err := r.store.Delete(relaySessionKey, domain.RelaySession{}); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil
		}
		return err
	}
	return nil
}
