package application

import (
	"context"
	"errors"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

// ConnectionService owns the wallet connection state machine. State is
// mutated only through its methods and through the events of the attached
// connector.
type ConnectionService interface {
	// Start runs the eager connection attempt. The passive listener is
	// attached whenever a connector becomes active.
	Start(ctx context.Context)
	// Stop releases the attached connector and closes the updates channel.
	Stop()
	// TryEagerConnect silently reconnects an already authorized injected
	// wallet. It never notifies and never fails.
	TryEagerConnect(ctx context.Context)
	ActivateInjected(ctx context.Context) error
	ActivateRelay(ctx context.Context) error
	Deactivate(ctx context.Context) error
	State() domain.ConnectionState
	// Updates delivers the latest state after every change. Only the most
	// recent state is kept if the consumer lags behind.
	Updates() <-chan domain.ConnectionState
}

type connectionService struct {
	injected ports.InjectedConnector
	relay    ports.RelayConnector
	notifier ports.Notifier

	lock        *sync.Mutex
	state       domain.ConnectionState
	active      ports.Connector
	unsubscribe func()
	// generation identifies the current subscription, events carrying an
	// older one come from a detached connector.
	generation uint64
	updates    chan domain.ConnectionState
	stopped    bool
}

// NewConnectionService returns a ConnectionService in Idle state. Either
// connector can be nil if not available to the host.
func NewConnectionService(
	injected ports.InjectedConnector,
	relay ports.RelayConnector,
	notifier ports.Notifier,
) (ConnectionService, error) {
	if notifier == nil {
		return nil, ErrMissingNotifier
	}
	return newConnectionService(injected, relay, notifier), nil
}

func newConnectionService(
	injected ports.InjectedConnector,
	relay ports.RelayConnector,
	notifier ports.Notifier,
) *connectionService {
	return &connectionService{
		injected: injected,
		relay:    relay,
		notifier: notifier,
		lock:     &sync.Mutex{},
		state:    domain.NewConnectionState(),
		updates:  make(chan domain.ConnectionState, 1),
	}
}

func (s *connectionService) Start(ctx context.Context) {
	s.TryEagerConnect(ctx)
}

// Stop detaches and deactivates the attached connector, if any. A relay
// session is kept so that it can be resumed by the next run.
func (s *connectionService) Stop() {
	s.lock.Lock()
	if s.stopped {
		s.lock.Unlock()
		return
	}
	connector := s.active
	s.detach()
	s.stopped = true
	close(s.updates)
	s.lock.Unlock()

	if connector == nil {
		return
	}
	if err := connector.Deactivate(context.Background()); err != nil {
		log.WithError(err).Warnf("failed to deactivate %s connector", connector.Kind())
	}
}

func (s *connectionService) TryEagerConnect(ctx context.Context) {
	if s.injected == nil || !s.injected.IsPresent(ctx) {
		log.Debug("eager connect: no injected wallet provider")
		return
	}

	authorized, err := s.injected.IsAuthorized(ctx)
	if err != nil {
		log.WithError(err).Debug("eager connect: unable to check authorization")
		return
	}
	if !authorized {
		log.Debug("eager connect: injected wallet not authorized")
		return
	}

	if err := s.activate(ctx, s.injected, true); err != nil {
		log.WithError(err).Debug("eager connect: activation failed")
	}
}

func (s *connectionService) ActivateInjected(ctx context.Context) error {
	if s.injected == nil || !s.injected.IsPresent(ctx) {
		s.notifyFailure(domain.ErrProviderAbsent)
		return domain.ErrProviderAbsent
	}

	err := s.activate(ctx, s.injected, false)
	if err != nil && !errors.Is(err, domain.ErrActivationInProgress) {
		s.notifyFailure(err)
	}
	return err
}

func (s *connectionService) ActivateRelay(ctx context.Context) error {
	if s.relay == nil {
		return domain.ErrUnsupportedConnector
	}

	err := s.activate(ctx, s.relay, false)
	if err == nil || errors.Is(err, domain.ErrActivationInProgress) {
		return err
	}

	// The partial session is useless, a new handshake is required for the
	// next attempt.
	if s.State().Connector != domain.ConnectorRelay {
		cleanupCtx := context.WithoutCancel(ctx)
		if err := s.relay.Deactivate(cleanupCtx); err != nil {
			log.WithError(err).Warn("failed to deactivate relay connector")
		}
		if err := s.relay.ClearSession(cleanupCtx); err != nil {
			log.WithError(err).Warn("failed to clear relay session")
		}
	}

	s.notifyFailure(err)
	return err
}

func (s *connectionService) Deactivate(ctx context.Context) error {
	s.lock.Lock()
	connector := s.active
	prev := s.state
	if !s.state.Deactivate() {
		s.lock.Unlock()
		log.Debug("deactivate: no active connector")
		return nil
	}
	s.detach()
	s.publish(prev)
	s.lock.Unlock()

	if connector.Kind() == domain.ConnectorRelay {
		if err := s.relay.ClearSession(ctx); err != nil {
			log.WithError(err).Warn("failed to clear relay session")
		}
	}

	log.Infof("deactivated %s connector", connector.Kind())
	return connector.Deactivate(ctx)
}

func (s *connectionService) State() domain.ConnectionState {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

func (s *connectionService) Updates() <-chan domain.ConnectionState {
	return s.updates
}

func (s *connectionService) activate(
	ctx context.Context, connector ports.Connector, silent bool,
) error {
	kind := connector.Kind()

	s.lock.Lock()
	prev := s.state
	if err := s.state.BeginActivation(kind); err != nil {
		s.lock.Unlock()
		return err
	}
	s.publish(prev)
	s.lock.Unlock()

	log.Debugf("activating %s connector", kind)

	activation, err := connector.Activate(ctx)
	if err == nil && (activation == nil || activation.Account == zeroAddress) {
		err = domain.ErrMissingAccount
	}

	s.lock.Lock()
	prev = s.state
	if err != nil {
		if silent {
			s.state.AbortActivation(kind)
		} else {
			s.state.FailActivation(kind, err)
		}
		s.publish(prev)
		s.lock.Unlock()
		log.WithError(err).Warnf("failed to activate %s connector", kind)
		return err
	}

	if err := s.state.CompleteActivation(
		kind, activation.Account, activation.ChainID,
	); err != nil {
		isAttached := s.active == connector
		s.lock.Unlock()
		log.WithError(err).Warnf("failed to attach %s connector", kind)
		if !isAttached {
			connector.Deactivate(context.WithoutCancel(ctx))
		}
		return err
	}
	previous := s.active
	s.attach(connector)
	s.publish(prev)
	s.lock.Unlock()

	if previous != nil && previous.Kind() != kind {
		if err := previous.Deactivate(context.WithoutCancel(ctx)); err != nil {
			log.WithError(err).Warnf("failed to deactivate %s connector", previous.Kind())
		}
	}

	log.Infof(
		"%s connector activated for account %s on chain %d",
		kind, activation.Account.Hex(), activation.ChainID,
	)
	return nil
}

// attach must be called with the lock held. The previous subscription, if
// any, is removed before the new one is registered.
func (s *connectionService) attach(connector ports.Connector) {
	s.detach()
	if s.stopped {
		s.active = connector
		return
	}

	s.generation++
	generation := s.generation
	kind := connector.Kind()
	s.active = connector
	s.unsubscribe = connector.Subscribe(func(event ports.ConnectorEvent) {
		s.handleEvent(generation, kind, event)
	})
	log.Debugf("subscribed to %s connector", kind)
}

// detach must be called with the lock held.
func (s *connectionService) detach() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
		log.Debugf("unsubscribed from %s connector", s.active.Kind())
	}
	s.active = nil
}

func (s *connectionService) handleEvent(
	generation uint64, kind domain.ConnectorKind, event ports.ConnectorEvent,
) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if generation != s.generation || s.active == nil {
		log.Debugf("ignoring %s event from stale %s connector", event.Type, kind)
		return
	}

	prev := s.state
	var err error
	switch event.Type {
	case ports.AccountChanged:
		err = s.state.UpdateAccount(kind, event.Account)
	case ports.ChainChanged:
		err = s.state.UpdateChain(kind, event.ChainID)
	case ports.Disconnected:
		err = s.state.Disconnect(kind)
	}
	if err != nil {
		log.WithError(err).Debugf("ignoring %s event from %s connector", event.Type, kind)
		return
	}

	if !s.state.IsActive() {
		s.detach()
		log.Infof("%s connector disconnected", kind)
	}
	s.publish(prev)
}

// publish must be called with the lock held. It replaces any undelivered
// state with the current one.
func (s *connectionService) publish(prev domain.ConnectionState) {
	if s.stopped || prev.Equal(s.state) {
		return
	}
	log.Debugf(
		"connection state: %s -> %s (connector: %s, activating: %s)",
		prev.Status, s.state.Status, s.state.Connector, s.state.ActivatingConnector,
	)

	select {
	case <-s.updates:
	default:
	}
	s.updates <- s.state
}

func (s *connectionService) notifyFailure(err error) {
	s.notifier.Notify(*domain.NewNotification(
		domain.NotificationError, activationErrorMessage(err), "",
	))
}

func activationErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrProviderAbsent):
		return "No wallet provider found. Install a browser wallet or use the relay connector"
	case errors.Is(err, domain.ErrUserRejected):
		return "Connection request rejected by the wallet"
	case errors.Is(err, domain.ErrActivationTimeout):
		return "Wallet connection timed out"
	case errors.Is(err, domain.ErrMissingAccount):
		return "The wallet did not share any account"
	default:
		return err.Error()
	}
}
