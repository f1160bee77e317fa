package application_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-walletkit/internal/core/application"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

const (
	avalanche = uint64(43114)
	mainnet   = uint64(1)
)

type sessionFixture struct {
	session  application.Session
	injected *mockInjectedConnector
	notifier *mockNotifier
	host     *mockHost
	chains   *mockChainRegistry
}

func newSessionFixture(
	t *testing.T, activationChainID uint64, setup ...func(*mockChainRegistry),
) *sessionFixture {
	chains := &mockChainRegistry{}
	for _, f := range setup {
		f(chains)
	}
	chains.On("DefaultChainID").Return(arbitrum)
	chains.On("IsSupported", arbitrum).Return(true)
	chains.On("IsSupported", avalanche).Return(true)
	chains.On("IsSupported", mock.Anything).Return(false)
	chains.On("ChainName", arbitrum).Return("Arbitrum")
	chains.On("ExplorerURL", arbitrum).Return(explorerURL)
	chains.On("ExplorerURL", avalanche).Return("https://snowtrace.io/")
	chains.On("ReceiptSource", mock.Anything, mock.Anything).
		Return(&mockReceiptSource{}, nil)

	host := &mockHost{}
	host.On("OpenWalletModal").Return()
	host.On("CloseWalletModal").Return()
	host.On("OpenSettingsModal").Return()
	host.On("CloseSettingsModal").Return()

	injected := newMockInjectedConnector()
	injected.On("IsPresent", mock.Anything).Return(true)
	injected.On("IsAuthorized", mock.Anything).Return(false, nil)
	injected.On("Activate", mock.Anything).
		Return(&ports.Activation{Account: account, ChainID: activationChainID}, nil)
	injected.On("Deactivate", mock.Anything).Return(nil)

	notifier := &mockNotifier{}
	cfg := &application.Config{
		DBType:                application.DBInMemory,
		Chains:                chains,
		Notifier:              notifier,
		Host:                  host,
		InjectedConnector:     injected,
		ReceiptPollInterval:   time.Hour,
		ReceiptMaxConcurrency: 1,
	}
	require.NoError(t, cfg.Validate())

	session := cfg.Session()
	require.NotNil(t, session)
	require.NoError(t, session.Start(ctx))
	t.Cleanup(session.Stop)

	return &sessionFixture{session, injected, notifier, host, chains}
}

func TestSessionStart(t *testing.T) {
	f := newSessionFixture(t, arbitrum)

	require.Equal(t, arbitrum, f.session.ChainID())
	require.False(t, f.session.State().IsActive())
	require.Empty(t, f.notifier.all())
	f.chains.AssertCalled(t, "ReceiptSource", mock.Anything, arbitrum)

	err := f.session.Start(ctx)
	require.ErrorIs(t, err, application.ErrSessionAlreadyStarted)
}

func TestSessionFollowsChain(t *testing.T) {
	t.Run("supported chain", func(t *testing.T) {
		f := newSessionFixture(t, avalanche)

		f.session.ConnectWallet()
		f.host.AssertCalled(t, "OpenWalletModal")

		require.NoError(t, f.session.ActivateInjected(ctx))
		require.Eventually(t, func() bool {
			return f.session.ChainID() == avalanche
		}, time.Second, 5*time.Millisecond)

		// the wallet modal is closed before the tracker is rebound
		f.chains.AssertCalled(t, "ReceiptSource", mock.Anything, avalanche)
		f.host.AssertNumberOfCalls(t, "CloseWalletModal", 1)
		require.Empty(t, f.notifier.all())
	})

	t.Run("unsupported chain", func(t *testing.T) {
		f := newSessionFixture(t, mainnet)

		require.NoError(t, f.session.ActivateInjected(ctx))
		require.Eventually(t, func() bool {
			return len(f.notifier.all()) == 1
		}, time.Second, 5*time.Millisecond)

		require.Equal(t, arbitrum, f.session.ChainID())
		require.Equal(t, domain.NotificationError, f.notifier.all()[0].Kind)
	})

	t.Run("back to default on disconnect", func(t *testing.T) {
		f := newSessionFixture(t, avalanche)

		require.NoError(t, f.session.ActivateInjected(ctx))
		require.Eventually(t, func() bool {
			return f.session.ChainID() == avalanche
		}, time.Second, 5*time.Millisecond)

		require.NoError(t, f.session.Disconnect(ctx))
		require.Eventually(t, func() bool {
			return f.session.ChainID() == arbitrum
		}, time.Second, 5*time.Millisecond)
		f.host.AssertCalled(t, "CloseSettingsModal")
	})
}

func TestSessionTrackSurvivesChainChange(t *testing.T) {
	f := newSessionFixture(t, avalanche)

	f.session.Track(hashA, "Swap done")
	require.NoError(t, f.session.ActivateInjected(ctx))
	require.Eventually(t, func() bool {
		return f.session.ChainID() == avalanche
	}, time.Second, 5*time.Millisecond)

	pending := f.session.PendingTransactions()
	require.Len(t, pending, 1)
	require.Equal(t, hashA, pending[0].Hash)
}

func TestSessionRetriesTrackerBinding(t *testing.T) {
	retryInterval := application.BindRetryInterval
	application.BindRetryInterval = 20 * time.Millisecond
	t.Cleanup(func() { application.BindRetryInterval = retryInterval })

	f := newSessionFixture(t, avalanche, func(chains *mockChainRegistry) {
		chains.On("ReceiptSource", mock.Anything, avalanche).
			Return(nil, errors.New("connection refused")).
			Twice()
	})

	f.session.Track(hashA, "Swap done")
	require.NoError(t, f.session.ActivateInjected(ctx))
	require.Eventually(t, func() bool {
		return f.session.ChainID() == avalanche
	}, time.Second, 5*time.Millisecond)

	// the receipt source is looked up again until it's reachable
	require.Eventually(t, func() bool {
		return f.chains.numOfSourceCalls(avalanche) == 3
	}, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 3, f.chains.numOfSourceCalls(avalanche))
	require.Equal(t, avalanche, f.session.ChainID())
	require.Len(t, f.session.PendingTransactions(), 1)
}

func TestSessionAccount(t *testing.T) {
	f := newSessionFixture(t, arbitrum)

	require.Empty(t, f.session.AccountURL())
	require.Empty(t, f.session.ShortAccount(13))

	require.NoError(t, f.session.ActivateInjected(ctx))

	require.Equal(t, explorerURL+"address/"+account.Hex(), f.session.AccountURL())
	require.Equal(t, "0x5B38...ddC4", f.session.ShortAccount(13))
	require.Equal(t, "0x5B3...dC4", f.session.ShortAccount(11))
}

func TestSessionDisconnectWhenInactive(t *testing.T) {
	f := newSessionFixture(t, arbitrum)

	before := f.session.State()
	require.NoError(t, f.session.Disconnect(ctx))

	require.True(t, before.Equal(f.session.State()))
	require.Empty(t, f.notifier.all())
	f.injected.AssertNotCalled(t, "Deactivate", mock.Anything)
	f.host.AssertCalled(t, "CloseSettingsModal")
}

func TestSessionSettings(t *testing.T) {
	f := newSessionFixture(t, avalanche)

	form, err := f.session.OpenSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, "0.3", form.SlippagePercent)
	f.host.AssertCalled(t, "OpenSettingsModal")

	err = f.session.SaveSettings(ctx, application.SettingsForm{
		SlippagePercent: "0.5",
		IsPnlInLeverage: true,
	})
	require.NoError(t, err)

	settings, err := f.session.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(50), settings.SlippageBps)
	require.True(t, settings.IsPnlInLeverage)

	// another chain keeps its own settings
	require.NoError(t, f.session.ActivateInjected(ctx))
	require.Eventually(t, func() bool {
		return f.session.ChainID() == avalanche
	}, time.Second, 5*time.Millisecond)

	settings, err = f.session.GetSettings(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(domain.DefaultSlippageBps), settings.SlippageBps)
	require.False(t, settings.IsPnlInLeverage)
}
