package ethreceipt

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	"github.com/tdex-network/tdex-walletkit/pkg/circuitbreaker"
	"go.uber.org/ratelimit"
)

type receiptClient interface {
	TransactionReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	Close()
}

// ReceiptSource is a receipt source bound to a JSON-RPC endpoint.
type ReceiptSource interface {
	ports.ReceiptSource
	Close()
}

type receiptSource struct {
	client  receiptClient
	cb      *gobreaker.CircuitBreaker
	limiter ratelimit.Limiter
}

// NewReceiptSource dials the given JSON-RPC endpoint. Requests are throttled
// to rateLimit per second, no limit if rateLimit is not positive.
func NewReceiptSource(
	ctx context.Context, name, rpcURL string, rateLimit int,
) (ReceiptSource, error) {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	return newReceiptSource(client, name, rateLimit), nil
}

// NewReceiptSourceFromRPC returns a receipt source using the given rpc client.
func NewReceiptSourceFromRPC(
	rpcClient *rpc.Client, name string, rateLimit int,
) ReceiptSource {
	return newReceiptSource(ethclient.NewClient(rpcClient), name, rateLimit)
}

func newReceiptSource(
	client receiptClient, name string, rateLimit int,
) *receiptSource {
	limiter := ratelimit.NewUnlimited()
	if rateLimit > 0 {
		limiter = ratelimit.New(rateLimit)
	}
	return &receiptSource{
		client:  client,
		cb:      circuitbreaker.NewCircuitBreaker(name),
		limiter: limiter,
	}
}

func (s *receiptSource) GetTransactionReceipt(
	ctx context.Context, hash common.Hash,
) (*domain.Receipt, error) {
	s.limiter.Take()

	res, err := s.cb.Execute(func() (interface{}, error) {
		receipt, err := s.client.TransactionReceipt(ctx, hash)
		if err != nil {
			// not mined yet is not a failure of the remote ledger
			if errors.Is(err, ethereum.NotFound) {
				return nil, nil
			}
			return nil, err
		}
		return receipt, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt of tx %s: %w", hash.Hex(), err)
	}

	receipt, _ := res.(*types.Receipt)
	if receipt == nil {
		return nil, nil
	}

	var blockNumber uint64
	if receipt.BlockNumber != nil {
		blockNumber = receipt.BlockNumber.Uint64()
	}
	return &domain.Receipt{
		TxHash:      receipt.TxHash,
		Status:      receipt.Status,
		BlockNumber: blockNumber,
	}, nil
}

func (s *receiptSource) Close() {
	s.client.Close()
}
