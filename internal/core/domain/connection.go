package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// ConnectorKind identifies one way to authorize and talk to a user's wallet.
type ConnectorKind int

const (
	ConnectorNone ConnectorKind = iota
	// ConnectorInjected is a wallet provider directly reachable by the host,
	// like a browser extension or a local signer.
	ConnectorInjected
	// ConnectorRelay is a wallet reachable only through an out-of-band session
	// handshake over a relay bridge.
	ConnectorRelay
)

func (k ConnectorKind) String() string {
	switch k {
	case ConnectorInjected:
		return "injected"
	case ConnectorRelay:
		return "relay"
	default:
		return "none"
	}
}

func (k ConnectorKind) bit() uint8 {
	if k == ConnectorNone {
		return 0
	}
	return 1 << uint8(k)
}

// ConnectorKindFromString ...
func ConnectorKindFromString(str string) (ConnectorKind, bool) {
	switch str {
	case "injected":
		return ConnectorInjected, true
	case "relay":
		return ConnectorRelay, true
	default:
		return ConnectorNone, false
	}
}

// ConnectionStatus is the tag of the connection state machine.
type ConnectionStatus int

const (
	ConnectionIdle ConnectionStatus = iota
	ConnectionActivating
	ConnectionActive
	ConnectionError
)

func (s ConnectionStatus) String() string {
	switch s {
	case ConnectionActivating:
		return "activating"
	case ConnectionActive:
		return "active"
	case ConnectionError:
		return "error"
	default:
		return "idle"
	}
}

// ConnectionState is the snapshot of the wallet connection.
// Connector, Account and ChainID always describe the currently attached
// connector, if any, so that a connection stays usable while another
// connector is being activated. ActivatingConnector is set only between an
// activation request and its resolution.
type ConnectionState struct {
	Status              ConnectionStatus
	Connector           ConnectorKind
	Account             common.Address
	ChainID             uint64
	ActivatingConnector ConnectorKind
	Err                 error

	// inflight is a bitmask of in-flight activations indexed by
	// ConnectorKind.bit().
	inflight uint8
}

// NewConnectionState returns an Idle state.
func NewConnectionState() ConnectionState {
	return ConnectionState{Status: ConnectionIdle}
}

// IsActive returns whether a connector is attached. An active state always
// carries an account.
func (s ConnectionState) IsActive() bool {
	return s.Connector != ConnectorNone
}

// IsActivating returns whether an activation is outstanding.
func (s ConnectionState) IsActivating() bool {
	return s.inflight != 0
}

// IsActivatingConnector returns whether an activation of the given connector
// is outstanding.
func (s ConnectionState) IsActivatingConnector(kind ConnectorKind) bool {
	return s.inflight&kind.bit() != 0
}

// Equal compares two snapshots, errors are compared by message.
func (s ConnectionState) Equal(other ConnectionState) bool {
	if s.Status != other.Status ||
		s.Connector != other.Connector ||
		s.Account != other.Account ||
		s.ChainID != other.ChainID ||
		s.ActivatingConnector != other.ActivatingConnector ||
		s.inflight != other.inflight {
		return false
	}
	if s.Err == nil || other.Err == nil {
		return s.Err == nil && other.Err == nil
	}
	return s.Err.Error() == other.Err.Error()
}

// BeginActivation moves the state to Activating for the given connector.
// Different connectors can be activated concurrently, the same one can't.
func (s *ConnectionState) BeginActivation(kind ConnectorKind) error {
	if kind == ConnectorNone {
		return ErrUnsupportedConnector
	}
	if s.IsActivatingConnector(kind) {
		return ErrActivationInProgress
	}

	s.inflight |= kind.bit()
	s.ActivatingConnector = kind
	s.Status = ConnectionActivating
	s.Err = nil
	return nil
}

// CompleteActivation attaches the connector that resolved with an account.
func (s *ConnectionState) CompleteActivation(
	kind ConnectorKind, account common.Address, chainID uint64,
) error {
	if !s.IsActivatingConnector(kind) {
		return ErrInvalidTransition
	}
	if account == (common.Address{}) {
		return ErrMissingAccount
	}

	s.endActivation(kind)
	s.Connector = kind
	s.Account = account
	s.ChainID = chainID
	s.Err = nil
	s.Status = ConnectionActive
	if s.IsActivating() {
		s.Status = ConnectionActivating
	}
	return nil
}

// FailActivation resets the activating connector after a rejection or
// timeout. The state falls back to the connection still attached, if any,
// otherwise it records the error.
func (s *ConnectionState) FailActivation(kind ConnectorKind, err error) error {
	if !s.IsActivatingConnector(kind) {
		return ErrInvalidTransition
	}

	s.endActivation(kind)
	s.Err = nil
	switch {
	case s.IsActivating():
		s.Status = ConnectionActivating
	case s.IsActive():
		s.Status = ConnectionActive
	default:
		s.Status = ConnectionError
		s.Err = err
	}
	return nil
}

// AbortActivation resets the activating connector without recording any
// error. Used by best-effort activations.
func (s *ConnectionState) AbortActivation(kind ConnectorKind) error {
	if !s.IsActivatingConnector(kind) {
		return ErrInvalidTransition
	}

	s.endActivation(kind)
	switch {
	case s.IsActivating():
		s.Status = ConnectionActivating
	case s.IsActive():
		s.Status = ConnectionActive
	default:
		s.Status = ConnectionIdle
	}
	return nil
}

// UpdateAccount applies an account change of the attached connector.
// An empty account means the wallet does not expose any account anymore and
// is treated as a disconnection.
func (s *ConnectionState) UpdateAccount(kind ConnectorKind, account common.Address) error {
	if !s.IsActive() || s.Connector != kind {
		return ErrInvalidTransition
	}
	if account == (common.Address{}) {
		return s.Disconnect(kind)
	}

	s.Account = account
	return nil
}

// UpdateChain applies a network change of the attached connector.
func (s *ConnectionState) UpdateChain(kind ConnectorKind, chainID uint64) error {
	if !s.IsActive() || s.Connector != kind {
		return ErrInvalidTransition
	}

	s.ChainID = chainID
	return nil
}

// Disconnect detaches the given connector.
func (s *ConnectionState) Disconnect(kind ConnectorKind) error {
	if !s.IsActive() || s.Connector != kind {
		return ErrInvalidTransition
	}

	s.detach()
	return nil
}

// Deactivate detaches whatever connector is attached. It returns false if
// there was nothing to detach.
func (s *ConnectionState) Deactivate() bool {
	if !s.IsActive() {
		return false
	}

	s.detach()
	return true
}

// endActivation clears the in-flight bit of kind and points
// ActivatingConnector to the other outstanding activation, if any.
func (s *ConnectionState) endActivation(kind ConnectorKind) {
	s.inflight &^= kind.bit()
	s.ActivatingConnector = ConnectorNone
	for _, k := range []ConnectorKind{ConnectorInjected, ConnectorRelay} {
		if s.IsActivatingConnector(k) {
			s.ActivatingConnector = k
		}
	}
}

func (s *ConnectionState) detach() {
	s.Connector = ConnectorNone
	s.Account = common.Address{}
	s.ChainID = 0
	s.Err = nil
	s.Status = ConnectionIdle
	if s.IsActivating() {
		s.Status = ConnectionActivating
	}
}
