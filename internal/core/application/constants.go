package application

import "time"

const (
	DBBadger   = "badger"
	DBInMemory = "inmemory"

	// DefaultReceiptPollInterval is the period of the reconciliation passes.
	DefaultReceiptPollInterval = 2 * time.Second
	// DefaultReceiptLookupTimeout bounds a single receipt lookup.
	DefaultReceiptLookupTimeout = 10 * time.Second
	// DefaultReceiptMaxConcurrency bounds the lookups in flight in a pass.
	DefaultReceiptMaxConcurrency = 4
)

var (
	// BindRetryInterval is how long a session waits before binding again the
	// pending tx tracker to a chain whose receipt source was unavailable.
	BindRetryInterval = 5 * time.Second

	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBInMemory: {},
	}
)
