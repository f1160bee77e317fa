package main

import (
	"context"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/config"
	"github.com/tdex-network/tdex-walletkit/internal/core/application"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/notifier"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/notifier/toast"
	webhooknotifier "github.com/tdex-network/tdex-walletkit/internal/infrastructure/notifier/webhook"
	ethreceipt "github.com/tdex-network/tdex-walletkit/internal/infrastructure/receipt/ethclient"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/wallet/injected"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/wallet/relay"
	"github.com/tdex-network/tdex-walletkit/pkg/stats"
)

// services bundles the application config and the infrastructure it's
// wired to.
type services struct {
	cfg     *application.Config
	toaster toast.Toaster
	chains  ports.ChainRegistry
	webhook webhooknotifier.Notifier

	injected ports.InjectedConnector

	cancelStats context.CancelFunc
}

func newServices() (*services, error) {
	if err := config.InitConfig(); err != nil {
		return nil, err
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	chains, err := newChainRegistry()
	if err != nil {
		return nil, err
	}

	toaster := toast.NewToaster(config.GetMilliseconds(config.ToastAutoCloseKey), nil)
	notifiers := []ports.Notifier{toaster}

	var webhook webhooknotifier.Notifier
	if endpoints := config.GetList(config.WebhookEndpointsKey); len(endpoints) > 0 {
		webhook, err = webhooknotifier.NewNotifier(
			endpoints, config.GetString(config.WebhookSecretKey), 0,
		)
		if err != nil {
			chains.Close()
			return nil, err
		}
		notifiers = append(notifiers, webhook)
	}

	var injectedConnector ports.InjectedConnector
	if url := config.GetString(config.InjectedProviderURLKey); url != "" {
		injectedConnector, err = injected.NewConnector(injected.Opts{
			ProviderURL:  url,
			PollInterval: config.GetMilliseconds(config.InjectedPollIntervalKey),
		})
		if err != nil {
			chains.Close()
			return nil, err
		}
	}

	cfg := &application.Config{
		DBType:                config.GetString(config.DBTypeKey),
		DBConfig:              config.GetDbDir(),
		Chains:                chains,
		Notifier:              notifier.NewMultiNotifier(notifiers...),
		Host:                  toaster,
		InjectedConnector:     injectedConnector,
		ReceiptPollInterval:   config.GetMilliseconds(config.ReceiptPollIntervalKey),
		ReceiptLookupTimeout:  config.GetSeconds(config.ReceiptLookupTimeoutKey),
		ReceiptMaxConcurrency: config.GetInt(config.ReceiptMaxConcurrencyKey),
	}
	if err := cfg.Validate(); err != nil {
		chains.Close()
		return nil, err
	}

	// the relay connector persists its session in the repo opened by Validate
	if url := config.GetString(config.RelayBridgeURLKey); url != "" {
		cfg.RelayConnector, err = relay.NewConnector(relay.Opts{
			BridgeURL:  url,
			Timeout:    config.GetSeconds(config.RelayTimeoutKey),
			Repository: cfg.RepoManager().RelaySessionRepository(),
			DisplayURI: func(uri string) {
				fmt.Printf("\nscan the pairing uri with your wallet:\n\n%s\n\n", uri)
			},
		})
		if err != nil {
			cfg.RepoManager().Close()
			chains.Close()
			return nil, err
		}
	}

	svc := &services{
		cfg:         cfg,
		toaster:     toaster,
		chains:      chains,
		webhook:     webhook,
		injected:    injectedConnector,
		cancelStats: func() {},
	}

	if interval := config.GetSeconds(config.StatsIntervalKey); interval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		stats.EnableMemoryStatistics(ctx, interval, config.GetDatadir())
		svc.cancelStats = cancel
	}

	return svc, nil
}

func (s *services) close() {
	s.cancelStats()
	// the relay session stays persisted for the next run
	if s.cfg.RelayConnector != nil {
		if err := s.cfg.RelayConnector.Deactivate(context.Background()); err != nil {
			log.WithError(err).Warn("failed to deactivate relay connector")
		}
	}
	if s.injected != nil {
		s.injected.Close()
	}
	if s.webhook != nil {
		s.webhook.Close()
	}
	s.toaster.Close()
	s.cfg.RepoManager().Close()
	s.chains.Close()
}

func newChainRegistry() (ports.ChainRegistry, error) {
	supported, err := config.GetSupportedChains()
	if err != nil {
		return nil, err
	}
	rpcEndpoints, err := config.GetURLsByChain(config.RPCEndpointsKey)
	if err != nil {
		return nil, err
	}
	explorerURLs, err := config.GetURLsByChain(config.ExplorerURLsKey)
	if err != nil {
		return nil, err
	}

	sort.Slice(supported, func(i, j int) bool { return supported[i] < supported[j] })
	chains := make([]ethreceipt.Chain, 0, len(supported))
	for _, chainID := range supported {
		chains = append(chains, ethreceipt.Chain{
			ID:          chainID,
			RPCURL:      rpcEndpoints[chainID],
			ExplorerURL: explorerURLs[chainID],
		})
	}

	return ethreceipt.NewChainRegistry(
		config.GetUint64(config.DefaultChainIDKey), chains,
		config.GetInt(config.ReceiptRateLimitKey),
	)
}
