package domain

import (
	"github.com/ethereum/go-ethereum/common"
)

// PendingTransaction is a submitted transaction awaiting its receipt.
// Message, if not empty, is shown to the user once the transaction succeeds.
type PendingTransaction struct {
	Hash    common.Hash
	Message string
}

// NewPendingTransaction ...
func NewPendingTransaction(hash common.Hash, message string) PendingTransaction {
	return PendingTransaction{Hash: hash, Message: message}
}

// Receipt is the ledger's confirmation record of a transaction.
type Receipt struct {
	TxHash      common.Hash
	Status      uint64
	BlockNumber uint64
}

// IsSuccessful ...
func (r Receipt) IsSuccessful() bool {
	return r.Status == ReceiptStatusSuccessful
}

// TxOutcome is the result of reconciling a pending transaction against its
// receipt.
type TxOutcome int

const (
	// TxPending means no receipt is available yet, tx must stay tracked.
	TxPending TxOutcome = iota
	// TxFailed means the tx was mined but reverted.
	TxFailed
	// TxSucceeded means the tx was mined successfully.
	TxSucceeded
)

func (o TxOutcome) String() string {
	switch o {
	case TxFailed:
		return "failed"
	case TxSucceeded:
		return "succeeded"
	default:
		return "pending"
	}
}

// Resolve returns the outcome of the tx given its receipt, nil if not mined.
func (tx PendingTransaction) Resolve(receipt *Receipt) TxOutcome {
	if receipt == nil {
		return TxPending
	}
	if receipt.IsSuccessful() {
		return TxSucceeded
	}
	return TxFailed
}

// Notification returns the terminal notification for the given outcome.
// Failures are always reported, successes only if a message was supplied
// at registration.
func (tx PendingTransaction) Notification(
	outcome TxOutcome, txURL string,
) (*Notification, bool) {
	switch outcome {
	case TxFailed:
		return NewNotification(NotificationError, "Txn failed", txURL), true
	case TxSucceeded:
		if tx.Message == "" {
			return nil, false
		}
		return NewNotification(NotificationSuccess, tx.Message, txURL), true
	default:
		return nil, false
	}
}
