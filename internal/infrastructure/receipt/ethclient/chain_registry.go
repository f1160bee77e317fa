package ethreceipt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

var (
	// ErrChainNotSupported ...
	ErrChainNotSupported = errors.New("chain not supported")
	// ErrMissingRPCEndpoint ...
	ErrMissingRPCEndpoint = errors.New("missing rpc endpoint for chain")
	// ErrMissingDefaultChain ...
	ErrMissingDefaultChain = errors.New("default chain must be supported")
)

// ChainNames are the display names of the well known chains.
var ChainNames = map[uint64]string{
	1:      "Ethereum",
	56:     "BSC",
	97:     "BSC Testnet",
	42161:  "Arbitrum",
	421611: "Arbitrum Testnet",
	43114:  "Avalanche",
	43113:  "Avalanche Fuji",
}

// Chain is the configuration of a supported chain.
type Chain struct {
	ID          uint64
	RPCURL      string
	ExplorerURL string
}

func (c Chain) name() string {
	if name, ok := ChainNames[c.ID]; ok {
		return name
	}
	return fmt.Sprintf("Chain %d", c.ID)
}

type chainRegistry struct {
	defaultChainID uint64
	chains         map[uint64]Chain
	rateLimit      int

	lock    *sync.Mutex
	sources map[uint64]ReceiptSource
}

// NewChainRegistry returns a registry of the given chains. Receipt sources
// are dialed lazily and cached per chain.
func NewChainRegistry(
	defaultChainID uint64, chains []Chain, rateLimit int,
) (ports.ChainRegistry, error) {
	chainsByID := make(map[uint64]Chain)
	for _, c := range chains {
		if len(c.ExplorerURL) > 0 && !strings.HasSuffix(c.ExplorerURL, "/") {
			c.ExplorerURL += "/"
		}
		chainsByID[c.ID] = c
	}
	if _, ok := chainsByID[defaultChainID]; !ok {
		return nil, ErrMissingDefaultChain
	}

	return &chainRegistry{
		defaultChainID: defaultChainID,
		chains:         chainsByID,
		rateLimit:      rateLimit,
		lock:           &sync.Mutex{},
		sources:        make(map[uint64]ReceiptSource),
	}, nil
}

func (r *chainRegistry) DefaultChainID() uint64 {
	return r.defaultChainID
}

func (r *chainRegistry) IsSupported(chainID uint64) bool {
	_, ok := r.chains[chainID]
	return ok
}

func (r *chainRegistry) ChainName(chainID uint64) string {
	return Chain{ID: chainID}.name()
}

func (r *chainRegistry) ExplorerURL(chainID uint64) string {
	return r.chains[chainID].ExplorerURL
}

func (r *chainRegistry) ReceiptSource(
	ctx context.Context, chainID uint64,
) (ports.ReceiptSource, error) {
	chain, ok := r.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrChainNotSupported, chainID)
	}
	if len(chain.RPCURL) <= 0 {
		return nil, fmt.Errorf("%w %s", ErrMissingRPCEndpoint, chain.name())
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if source, ok := r.sources[chainID]; ok {
		return source, nil
	}

	source, err := NewReceiptSource(ctx, chain.name(), chain.RPCURL, r.rateLimit)
	if err != nil {
		return nil, err
	}
	r.sources[chainID] = source

	log.Debugf("receipt source for %s connected to %s", chain.name(), chain.RPCURL)
	return source, nil
}

func (r *chainRegistry) Close() {
	r.lock.Lock()
	defer r.lock.Unlock()

	for chainID, source := range r.sources {
		source.Close()
		delete(r.sources, chainID)
	}
}
