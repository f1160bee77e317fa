package injected

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

// watcher polls the provider for account and network changes of the
// activated wallet, since plain JSON-RPC providers don't push them.
type watcher struct {
	connector *connector
	account   common.Address
	chainID   uint64

	quitChan chan struct{}
	stopOnce *sync.Once
}

func newWatcher(c *connector, account common.Address, chainID uint64) *watcher {
	return &watcher{
		connector: c,
		account:   account,
		chainID:   chainID,
		quitChan:  make(chan struct{}),
		stopOnce:  &sync.Once{},
	}
}

func (w *watcher) run() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-w.quitChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(w.connector.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.quitChan:
			return
		case <-ticker.C:
			if !w.poll(ctx) {
				w.connector.watcherStopped(w)
				return
			}
		}
	}
}

// poll returns false once the wallet is gone.
func (w *watcher) poll(ctx context.Context) bool {
	accounts, err := w.connector.accounts(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		log.WithError(err).Warn("injected wallet provider unreachable")
		w.emit(ports.ConnectorEvent{Type: ports.Disconnected})
		return false
	}

	var account common.Address
	if len(accounts) > 0 {
		account = accounts[0]
	}
	if account != w.account {
		w.account = account
		w.emit(ports.ConnectorEvent{Type: ports.AccountChanged, Account: account})
		if account == (common.Address{}) {
			return false
		}
	}

	chainID, err := w.connector.chainID(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		log.WithError(err).Warn("injected wallet provider unreachable")
		w.emit(ports.ConnectorEvent{Type: ports.Disconnected})
		return false
	}
	if chainID != w.chainID {
		w.chainID = chainID
		w.emit(ports.ConnectorEvent{Type: ports.ChainChanged, ChainID: chainID})
	}
	return true
}

func (w *watcher) emit(event ports.ConnectorEvent) {
	select {
	case <-w.quitChan:
		return
	default:
	}
	w.connector.emitter.Emit(event)
}

func (w *watcher) stop() {
	w.stopOnce.Do(func() {
		close(w.quitChan)
	})
}
