package ports

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
)

// ReceiptSource is the remote ledger queried for tx receipts.
type ReceiptSource interface {
	// GetTransactionReceipt returns nil, nil if the tx is not mined yet.
	GetTransactionReceipt(ctx context.Context, hash common.Hash) (*domain.Receipt, error)
}

// ChainRegistry knows the chains supported by the host.
type ChainRegistry interface {
	DefaultChainID() uint64
	IsSupported(chainID uint64) bool
	ChainName(chainID uint64) string
	// ExplorerURL returns the base url of the chain's block explorer, with a
	// trailing slash.
	ExplorerURL(chainID uint64) string
	// ReceiptSource returns the receipt source bound to the given chain.
	ReceiptSource(ctx context.Context, chainID uint64) (ReceiptSource, error)
	Close()
}
