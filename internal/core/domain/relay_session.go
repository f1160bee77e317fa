package domain

import (
	"context"
	"fmt"
	"net/url"

	"github.com/ethereum/go-ethereum/common"
)

// RelaySession is the local data of an approved relay session, kept to
// resume the session without a new handshake.
type RelaySession struct {
	Topic     string
	Key       string
	BridgeURL string
	PeerID    string
	Accounts  []string
	ChainID   uint64
	CreatedAt int64
}

// Account returns the first account of the session, if any.
func (s RelaySession) Account() common.Address {
	for _, a := range s.Accounts {
		if common.IsHexAddress(a) {
			return common.HexToAddress(a)
		}
	}
	return common.Address{}
}

// IsApproved ...
func (s RelaySession) IsApproved() bool {
	return s.PeerID != "" && s.Account() != (common.Address{})
}

// PairingURI returns the uri the wallet must scan to join the session.
func (s RelaySession) PairingURI() string {
	return fmt.Sprintf(
		"wc:%s@1?bridge=%s&key=%s", s.Topic, url.QueryEscape(s.BridgeURL), s.Key,
	)
}

// RelaySessionRepository stores at most one relay session.
type RelaySessionRepository interface {
	// GetSession returns ErrRelaySessionNotFound if there's no session.
	GetSession(ctx context.Context) (*RelaySession, error)
	SaveSession(ctx context.Context, session RelaySession) error
	// DeleteSession is a no-op if there's no session.
	DeleteSession(ctx context.Context) error
}
