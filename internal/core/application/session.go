package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

// Session is the host root: it owns the connection, the pending tx tracker
// and the settings, and keeps the tracker bound to the chain in use.
type Session interface {
	Start(ctx context.Context) error
	Stop()
	// ChainID is the connected chain if supported, the default one otherwise.
	ChainID() uint64
	State() domain.ConnectionState
	Updates() <-chan domain.ConnectionState

	ConnectWallet()
	ActivateInjected(ctx context.Context) error
	ActivateRelay(ctx context.Context) error
	// Disconnect deactivates the wallet and closes the settings modal.
	Disconnect(ctx context.Context) error
	AccountURL() string
	ShortAccount(length int) string

	Track(hash common.Hash, message string)
	PendingTransactions() []domain.PendingTransaction

	GetSettings(ctx context.Context) (*domain.Settings, error)
	OpenSettings(ctx context.Context) (*SettingsForm, error)
	SaveSettings(ctx context.Context, form SettingsForm) error
	SetPnlInLeverage(ctx context.Context, enabled bool) error
	SetShowPositionLines(ctx context.Context, enabled bool) error
}

type session struct {
	chains     ports.ChainRegistry
	notifier   ports.Notifier
	host       ports.Host
	connection ConnectionService
	tracker    PendingTxService
	settings   SettingsService

	lock    *sync.RWMutex
	chainID uint64
	// boundChainID is the chain the tracker is running on, 0 if the tracker
	// could not be bound to chainID yet.
	boundChainID  uint64
	retryInterval time.Duration
	wasActive     bool
	warnedChainID uint64
	started       bool
	updates       chan domain.ConnectionState
	ctx           context.Context
	cancel        context.CancelFunc
	wg            *sync.WaitGroup
}

func NewSession(
	chains ports.ChainRegistry,
	notifier ports.Notifier,
	host ports.Host,
	connection ConnectionService,
	tracker PendingTxService,
	settings SettingsService,
) (Session, error) {
	if chains == nil {
		return nil, ErrMissingChainRegistry
	}
	if notifier == nil {
		return nil, ErrMissingNotifier
	}
	if host == nil {
		return nil, ErrMissingHost
	}
	return newSession(chains, notifier, host, connection, tracker, settings), nil
}

func newSession(
	chains ports.ChainRegistry,
	notifier ports.Notifier,
	host ports.Host,
	connection ConnectionService,
	tracker PendingTxService,
	settings SettingsService,
) *session {
	return &session{
		chains:     chains,
		notifier:   notifier,
		host:       host,
		connection: connection,
		tracker:    tracker,
		settings:   settings,
		lock:       &sync.RWMutex{},
		chainID:       chains.DefaultChainID(),
		retryInterval: BindRetryInterval,
		updates:       make(chan domain.ConnectionState, 1),
		wg:            &sync.WaitGroup{},
	}
}

func (s *session) Start(ctx context.Context) error {
	s.lock.Lock()
	if s.started {
		s.lock.Unlock()
		return ErrSessionAlreadyStarted
	}
	s.started = true
	s.ctx, s.cancel = context.WithCancel(context.Background())
	chainID := s.chainID
	s.lock.Unlock()

	if err := s.bindTracker(ctx, chainID); err != nil {
		s.lock.Lock()
		s.started = false
		s.cancel()
		s.lock.Unlock()
		return err
	}

	s.wg.Add(1)
	go s.followConnection()

	s.connection.Start(ctx)
	log.Infof("session started on chain %d", chainID)
	return nil
}

func (s *session) Stop() {
	s.lock.Lock()
	if !s.started {
		s.lock.Unlock()
		return
	}
	s.started = false
	s.cancel()
	s.lock.Unlock()

	// closing the connection updates ends followConnection
	s.connection.Stop()
	s.wg.Wait()
	s.tracker.Stop()

	log.Info("session stopped")
}

func (s *session) ChainID() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.chainID
}

func (s *session) State() domain.ConnectionState {
	return s.connection.State()
}

// Updates relays the connection updates once the session has processed
// them, so that ChainID is already up to date for the consumer.
func (s *session) Updates() <-chan domain.ConnectionState {
	return s.updates
}

func (s *session) ConnectWallet() {
	s.host.OpenWalletModal()
}

func (s *session) ActivateInjected(ctx context.Context) error {
	return s.connection.ActivateInjected(ctx)
}

func (s *session) ActivateRelay(ctx context.Context) error {
	return s.connection.ActivateRelay(ctx)
}

func (s *session) Disconnect(ctx context.Context) error {
	err := s.connection.Deactivate(ctx)
	s.host.CloseSettingsModal()
	return err
}

func (s *session) AccountURL() string {
	state := s.connection.State()
	if !state.IsActive() {
		return ""
	}
	return accountURL(s.chains.ExplorerURL(s.ChainID()), state.Account)
}

func (s *session) ShortAccount(length int) string {
	state := s.connection.State()
	if !state.IsActive() {
		return ""
	}
	return shortenAddress(state.Account, length)
}

func (s *session) Track(hash common.Hash, message string) {
	s.tracker.Register(domain.NewPendingTransaction(hash, message))
}

func (s *session) PendingTransactions() []domain.PendingTransaction {
	return s.tracker.PendingTransactions()
}

func (s *session) GetSettings(ctx context.Context) (*domain.Settings, error) {
	return s.settings.GetSettings(ctx, s.ChainID())
}

func (s *session) OpenSettings(ctx context.Context) (*SettingsForm, error) {
	return s.settings.OpenSettings(ctx, s.ChainID())
}

func (s *session) SaveSettings(ctx context.Context, form SettingsForm) error {
	return s.settings.SaveSettings(ctx, s.ChainID(), form)
}

func (s *session) SetPnlInLeverage(ctx context.Context, enabled bool) error {
	return s.settings.SetPnlInLeverage(ctx, s.ChainID(), enabled)
}

func (s *session) SetShowPositionLines(ctx context.Context, enabled bool) error {
	return s.settings.SetShowPositionLines(ctx, s.ChainID(), enabled)
}

// followConnection is the only goroutine rebinding the tracker once the
// session is started. A failed binding is retried every retryInterval until
// it succeeds or the chain changes.
func (s *session) followConnection() {
	defer s.wg.Done()
	defer close(s.updates)

	retryTimer := time.NewTimer(s.retryInterval)
	retryTimer.Stop()
	defer retryTimer.Stop()
	isRetryArmed := false

	updates := s.connection.Updates()
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				return
			}
			s.onConnectionUpdate(state)

			select {
			case <-s.updates:
			default:
			}
			s.updates <- state
		case <-retryTimer.C:
			isRetryArmed = false
			s.rebindTracker()
		}

		if !isRetryArmed && !s.isTrackerBound() {
			retryTimer.Reset(s.retryInterval)
			isRetryArmed = true
		}
	}
}

func (s *session) onConnectionUpdate(state domain.ConnectionState) {
	s.lock.Lock()
	becameActive := state.IsActive() && !s.wasActive
	s.wasActive = state.IsActive()

	chainID := s.chains.DefaultChainID()
	unsupported := false
	if state.IsActive() {
		if s.chains.IsSupported(state.ChainID) {
			chainID = state.ChainID
		} else {
			unsupported = state.ChainID != s.warnedChainID
			s.warnedChainID = state.ChainID
		}
	}
	s.chainID = chainID
	s.lock.Unlock()

	if becameActive {
		s.host.CloseWalletModal()
	}
	if unsupported {
		s.notifier.Notify(*domain.NewNotification(
			domain.NotificationError,
			fmt.Sprintf(
				"Network %d is not supported, switch to %s",
				state.ChainID, s.chains.ChainName(s.chains.DefaultChainID()),
			),
			"",
		))
	}

	s.rebindTracker()
}

func (s *session) isTrackerBound() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.boundChainID != 0 && s.boundChainID == s.chainID
}

// rebindTracker moves the tracker to the current chain, if not already
// running on it.
func (s *session) rebindTracker() {
	if s.isTrackerBound() {
		return
	}

	s.lock.Lock()
	chainID, ctx := s.chainID, s.ctx
	s.boundChainID = 0
	s.lock.Unlock()

	s.tracker.Stop()
	if err := s.bindTracker(ctx, chainID); err != nil {
		log.WithError(err).Warnf(
			"failed to bind pending tx tracker to chain %d, retrying in %s",
			chainID, s.retryInterval,
		)
	}
}

func (s *session) bindTracker(ctx context.Context, chainID uint64) error {
	if !s.chains.IsSupported(chainID) {
		return ErrUnsupportedChain
	}

	source, err := s.chains.ReceiptSource(ctx, chainID)
	if err != nil {
		return fmt.Errorf("failed to get receipt source for chain %d: %w", chainID, err)
	}
	if err := s.tracker.Start(source, chainID); err != nil {
		return err
	}

	s.lock.Lock()
	s.boundChainID = chainID
	s.lock.Unlock()
	return nil
}
