package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
)

// ConnectorEventType ...
type ConnectorEventType int

const (
	AccountChanged ConnectorEventType = iota
	ChainChanged
	Disconnected
)

func (t ConnectorEventType) String() string {
	switch t {
	case AccountChanged:
		return "AccountChanged"
	case ChainChanged:
		return "ChainChanged"
	case Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// ConnectorEvent is emitted by a connector when the wallet changes on its
// own, ie. the user switches account or network from the wallet itself.
type ConnectorEvent struct {
	Type    ConnectorEventType
	Account common.Address
	ChainID uint64
}

// Activation is what a connector resolves with once the wallet is unlocked.
type Activation struct {
	Account common.Address
	ChainID uint64
}

// Connector is the strategy to authorize and talk to a user's wallet.
type Connector interface {
	Kind() domain.ConnectorKind
	// Activate asks the wallet for access. It may prompt the user and block
	// until the user approves, rejects, or ctx is done.
	Activate(ctx context.Context) (*Activation, error)
	// Deactivate detaches from the wallet. It's safe to call multiple times.
	Deactivate(ctx context.Context) error
	// Subscribe registers a handler for the events of the connector. The
	// returned func removes the handler.
	Subscribe(handler func(ConnectorEvent)) (unsubscribe func())
}

// InjectedConnector is a connector to a wallet directly reachable by the
// host.
type InjectedConnector interface {
	Connector
	// IsPresent returns whether a wallet provider is reachable at all.
	IsPresent(ctx context.Context) bool
	// IsAuthorized returns whether the wallet already granted access, so
	// that it can be activated without prompting the user.
	IsAuthorized(ctx context.Context) (bool, error)
	// Close stops any background activity and releases the connection to the
	// provider.
	Close()
}

// RelayConnector is a connector to a wallet reachable through a relay
// session.
type RelayConnector interface {
	Connector
	// ClearSession deletes the local session data.
	ClearSession(ctx context.Context) error
}
