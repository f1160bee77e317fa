package injected

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/wallet"
	"golang.org/x/time/rate"
)

const (
	// userRejectedCode is the EIP-1193 error code for a request declined by
	// the user.
	userRejectedCode = 4001
	// methodNotFoundCode is the JSON-RPC error code for unknown methods.
	methodNotFoundCode = -32601

	DefaultPollInterval      = time.Second
	DefaultRequestsPerSecond = 10
)

// Opts defines the parameters needed for creating an injected connector.
type Opts struct {
	ProviderURL       string
	PollInterval      time.Duration
	RequestsPerSecond float64
}

func (o Opts) validate() error {
	if len(o.ProviderURL) <= 0 {
		return fmt.Errorf("missing provider url")
	}
	return nil
}

type connector struct {
	providerURL  string
	pollInterval time.Duration
	limiter      *rate.Limiter
	emitter      *wallet.Emitter

	lock     *sync.Mutex
	client   *rpc.Client
	watcher  *watcher
	activity *sync.WaitGroup
}

// NewConnector returns an injected connector for the wallet provider
// reachable at the given JSON-RPC url. The provider is dialed lazily.
func NewConnector(opts Opts) (ports.InjectedConnector, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return newConnector(opts.ProviderURL, nil, opts.PollInterval, opts.RequestsPerSecond), nil
}

// NewConnectorFromClient returns an injected connector using an already
// dialed rpc client.
func NewConnectorFromClient(
	client *rpc.Client, pollInterval time.Duration,
) ports.InjectedConnector {
	return newConnector("", client, pollInterval, 0)
}

func newConnector(
	providerURL string, client *rpc.Client,
	pollInterval time.Duration, requestsPerSecond float64,
) *connector {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = DefaultRequestsPerSecond
	}
	return &connector{
		providerURL:  providerURL,
		pollInterval: pollInterval,
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), 5),
		emitter:      wallet.NewEmitter(),
		lock:         &sync.Mutex{},
		client:       client,
		activity:     &sync.WaitGroup{},
	}
}

func (c *connector) Kind() domain.ConnectorKind {
	return domain.ConnectorInjected
}

func (c *connector) IsPresent(ctx context.Context) bool {
	var version string
	if err := c.call(ctx, &version, "web3_clientVersion"); err != nil {
		log.WithError(err).Debug("injected wallet provider not reachable")
		return false
	}
	return true
}

func (c *connector) IsAuthorized(ctx context.Context) (bool, error) {
	accounts, err := c.accounts(ctx)
	if err != nil {
		return false, err
	}
	return len(accounts) > 0, nil
}

func (c *connector) Activate(ctx context.Context) (*ports.Activation, error) {
	var accounts []common.Address
	err := c.call(ctx, &accounts, "eth_requestAccounts")
	if err != nil {
		switch rpcErrorCode(err) {
		case userRejectedCode:
			return nil, domain.ErrUserRejected
		case methodNotFoundCode:
			// plain nodes expose their unlocked accounts without prompting
			accounts, err = c.accounts(ctx)
			if err != nil {
				return nil, err
			}
		default:
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, domain.ErrActivationTimeout
			}
			return nil, err
		}
	}
	if len(accounts) <= 0 {
		return nil, domain.ErrMissingAccount
	}

	chainID, err := c.chainID(ctx)
	if err != nil {
		return nil, err
	}

	c.startWatcher(accounts[0], chainID)

	return &ports.Activation{Account: accounts[0], ChainID: chainID}, nil
}

func (c *connector) Deactivate(ctx context.Context) error {
	c.stopWatcher()
	return nil
}

func (c *connector) Subscribe(handler func(ports.ConnectorEvent)) func() {
	return c.emitter.Subscribe(handler)
}

func (c *connector) Close() {
	c.stopWatcher()

	c.lock.Lock()
	defer c.lock.Unlock()
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

func (c *connector) startWatcher(account common.Address, chainID uint64) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.watcher != nil {
		c.watcher.stop()
	}
	c.watcher = newWatcher(c, account, chainID)
	c.activity.Add(1)
	go func(w *watcher) {
		defer c.activity.Done()
		w.run()
	}(c.watcher)
}

func (c *connector) stopWatcher() {
	c.lock.Lock()
	w := c.watcher
	c.watcher = nil
	c.lock.Unlock()

	if w != nil {
		w.stop()
	}
	c.activity.Wait()
}

// watcherStopped is called by a watcher that stops on its own.
func (c *connector) watcherStopped(w *watcher) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.watcher == w {
		c.watcher = nil
	}
}

func (c *connector) accounts(ctx context.Context) ([]common.Address, error) {
	var accounts []common.Address
	if err := c.call(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (c *connector) chainID(ctx context.Context) (uint64, error) {
	var chainID hexutil.Uint64
	if err := c.call(ctx, &chainID, "eth_chainId"); err != nil {
		return 0, err
	}
	return uint64(chainID), nil
}

func (c *connector) call(
	ctx context.Context, result interface{}, method string, args ...interface{},
) error {
	client, err := c.rpcClient(ctx)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return client.CallContext(ctx, result, method, args...)
}

func (c *connector) rpcClient(ctx context.Context) (*rpc.Client, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if len(c.providerURL) <= 0 {
		return nil, domain.ErrProviderAbsent
	}

	client, err := rpc.DialContext(ctx, c.providerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderAbsent, err)
	}
	c.client = client
	return client, nil
}

func rpcErrorCode(err error) int {
	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return rpcErr.ErrorCode()
	}
	return 0
}
