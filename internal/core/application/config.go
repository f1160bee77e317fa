package application

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	dbbadger "github.com/tdex-network/tdex-walletkit/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/storage/db/inmemory"
)

type Config struct {
	DBType   string
	DBConfig interface{}

	Chains            ports.ChainRegistry
	Notifier          ports.Notifier
	Host              ports.Host
	InjectedConnector ports.InjectedConnector
	RelayConnector    ports.RelayConnector

	ReceiptPollInterval   time.Duration
	ReceiptLookupTimeout  time.Duration
	ReceiptMaxConcurrency int

	repo       ports.RepoManager
	connection ConnectionService
	tracker    PendingTxService
	settings   SettingsService
	session    Session
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("db type %q not supported", c.DBType)
	}
	if c.Chains == nil {
		return ErrMissingChainRegistry
	}
	if c.Notifier == nil {
		return ErrMissingNotifier
	}
	if c.Host == nil {
		return ErrMissingHost
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	repo, _ := c.repoManager()
	return repo
}

func (c *Config) ConnectionService() ConnectionService {
	svc, _ := c.connectionService()
	return svc
}

func (c *Config) PendingTxService() PendingTxService {
	svc, _ := c.pendingTxService()
	return svc
}

func (c *Config) SettingsService() SettingsService {
	svc, _ := c.settingsService()
	return svc
}

func (c *Config) Session() Session {
	svc, _ := c.sessionService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		switch c.DBType {
		case DBBadger:
			datadir, _ := c.DBConfig.(string)
			repoManager, err := dbbadger.NewRepoManager(datadir, log.StandardLogger())
			if err != nil {
				return nil, err
			}
			c.repo = repoManager
		case DBInMemory:
			c.repo = inmemory.NewRepoManager()
		default:
			return nil, fmt.Errorf("db type %q not supported", c.DBType)
		}
	}
	return c.repo, nil
}

func (c *Config) connectionService() (ConnectionService, error) {
	if c.connection == nil {
		svc, err := NewConnectionService(
			c.InjectedConnector, c.RelayConnector, c.Notifier,
		)
		if err != nil {
			return nil, err
		}
		c.connection = svc
	}
	return c.connection, nil
}

func (c *Config) pendingTxService() (PendingTxService, error) {
	if c.tracker == nil {
		svc, err := NewPendingTxService(PendingTxServiceOpts{
			Chains:         c.Chains,
			Notifier:       c.Notifier,
			PollInterval:   c.ReceiptPollInterval,
			LookupTimeout:  c.ReceiptLookupTimeout,
			MaxConcurrency: c.ReceiptMaxConcurrency,
		})
		if err != nil {
			return nil, err
		}
		c.tracker = svc
	}
	return c.tracker, nil
}

func (c *Config) settingsService() (SettingsService, error) {
	if c.settings == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		svc, err := NewSettingsService(repo, c.Notifier, c.Host)
		if err != nil {
			return nil, err
		}
		c.settings = svc
	}
	return c.settings, nil
}

func (c *Config) sessionService() (Session, error) {
	if c.session == nil {
		connection, err := c.connectionService()
		if err != nil {
			return nil, err
		}
		tracker, err := c.pendingTxService()
		if err != nil {
			return nil, err
		}
		settings, err := c.settingsService()
		if err != nil {
			return nil, err
		}
		svc, err := NewSession(
			c.Chains, c.Notifier, c.Host, connection, tracker, settings,
		)
		if err != nil {
			return nil, err
		}
		c.session = svc
	}
	return c.session, nil
}
