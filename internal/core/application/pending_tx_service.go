package application

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	"github.com/tdex-network/tdex-walletkit/pkg/stats"
	"golang.org/x/sync/errgroup"
)

// PendingTxService tracks submitted transactions until their receipt is
// available and notifies the user about their outcome.
type PendingTxService interface {
	Register(tx domain.PendingTransaction)
	PendingTransactions() []domain.PendingTransaction
	// Start binds the tracker to the given receipt source and schedules a
	// reconciliation pass every poll interval.
	Start(source ports.ReceiptSource, chainID uint64) error
	// Stop lets any in-flight pass apply its results and schedules no
	// further pass. The tracked transactions are kept.
	Stop()
	// Reconcile runs one pass against the bound receipt source and returns
	// the number of resolved transactions.
	Reconcile(ctx context.Context) (int, error)
	IsRunning() bool
}

type trackedTx struct {
	id uint64
	tx domain.PendingTransaction
}

type pendingTxService struct {
	chains         ports.ChainRegistry
	notifier       ports.Notifier
	interval       time.Duration
	lookupTimeout  time.Duration
	maxConcurrency int

	txLock *sync.RWMutex
	txs    []trackedTx
	nextID uint64

	// passLock serializes reconciliation passes.
	passLock *sync.Mutex

	loopLock *sync.Mutex
	source   ports.ReceiptSource
	chainID  uint64
	quitChan chan struct{}
	wg       *sync.WaitGroup
	running  bool
}

// PendingTxServiceOpts ...
type PendingTxServiceOpts struct {
	Chains         ports.ChainRegistry
	Notifier       ports.Notifier
	PollInterval   time.Duration
	LookupTimeout  time.Duration
	MaxConcurrency int
}

func (o PendingTxServiceOpts) validate() error {
	if o.Chains == nil {
		return ErrMissingChainRegistry
	}
	if o.Notifier == nil {
		return ErrMissingNotifier
	}
	return nil
}

// NewPendingTxService returns a tracker not yet bound to any receipt source.
func NewPendingTxService(opts PendingTxServiceOpts) (PendingTxService, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return newPendingTxService(opts), nil
}

func newPendingTxService(opts PendingTxServiceOpts) *pendingTxService {
	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultReceiptPollInterval
	}
	lookupTimeout := opts.LookupTimeout
	if lookupTimeout <= 0 {
		lookupTimeout = DefaultReceiptLookupTimeout
	}
	maxConcurrency := opts.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultReceiptMaxConcurrency
	}

	return &pendingTxService{
		chains:         opts.Chains,
		notifier:       opts.Notifier,
		interval:       interval,
		lookupTimeout:  lookupTimeout,
		maxConcurrency: maxConcurrency,
		txLock:         &sync.RWMutex{},
		txs:            make([]trackedTx, 0),
		passLock:       &sync.Mutex{},
		loopLock:       &sync.Mutex{},
		wg:             &sync.WaitGroup{},
	}
}

func (s *pendingTxService) Register(tx domain.PendingTransaction) {
	s.txLock.Lock()
	defer s.txLock.Unlock()

	s.nextID++
	s.txs = append(s.txs, trackedTx{s.nextID, tx})
	stats.SetTrackedTxs(len(s.txs))

	log.Debugf("tracking tx %s", tx.Hash.Hex())
}

func (s *pendingTxService) PendingTransactions() []domain.PendingTransaction {
	s.txLock.RLock()
	defer s.txLock.RUnlock()

	txs := make([]domain.PendingTransaction, 0, len(s.txs))
	for _, t := range s.txs {
		txs = append(txs, t.tx)
	}
	return txs
}

func (s *pendingTxService) Start(source ports.ReceiptSource, chainID uint64) error {
	s.loopLock.Lock()
	defer s.loopLock.Unlock()

	if s.running {
		return ErrTrackerAlreadyStarted
	}

	s.source = source
	s.chainID = chainID
	s.quitChan = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.loop(source, chainID, s.quitChan)

	log.Debugf("pending tx tracker started on chain %d", chainID)
	return nil
}

func (s *pendingTxService) Stop() {
	s.loopLock.Lock()
	defer s.loopLock.Unlock()

	if !s.running {
		return
	}

	close(s.quitChan)
	s.wg.Wait()
	s.running = false

	log.Debugf("pending tx tracker stopped on chain %d", s.chainID)
}

func (s *pendingTxService) IsRunning() bool {
	s.loopLock.Lock()
	defer s.loopLock.Unlock()
	return s.running
}

func (s *pendingTxService) Reconcile(ctx context.Context) (int, error) {
	s.loopLock.Lock()
	source, chainID := s.source, s.chainID
	s.loopLock.Unlock()

	if source == nil {
		return 0, ErrTrackerNotBound
	}
	return s.reconcile(ctx, source, chainID), nil
}

// loop schedules the next pass only once the previous one is applied, so
// that passes never overlap.
func (s *pendingTxService) loop(
	source ports.ReceiptSource, chainID uint64, quit chan struct{},
) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	timer := time.NewTimer(s.interval)
	defer timer.Stop()

	for {
		select {
		case <-quit:
			return
		case <-timer.C:
			s.reconcile(ctx, source, chainID)
			timer.Reset(s.interval)
		}
	}
}

func (s *pendingTxService) reconcile(
	ctx context.Context, source ports.ReceiptSource, chainID uint64,
) int {
	s.passLock.Lock()
	defer s.passLock.Unlock()

	snapshot := s.snapshot()
	if len(snapshot) <= 0 {
		return 0
	}

	receipts := make([]*domain.Receipt, len(snapshot))
	eg := &errgroup.Group{}
	eg.SetLimit(s.maxConcurrency)
	for i := range snapshot {
		i := i
		eg.Go(func() error {
			lookupCtx, cancel := context.WithTimeout(ctx, s.lookupTimeout)
			defer cancel()

			hash := snapshot[i].tx.Hash
			receipt, err := source.GetTransactionReceipt(lookupCtx, hash)
			if err != nil {
				stats.IncLookupErrors()
				log.WithError(err).Debugf(
					"receipt lookup for tx %s failed, retrying next pass", hash.Hex(),
				)
				return nil
			}
			receipts[i] = receipt
			return nil
		})
	}
	// lookup errors are never propagated
	eg.Wait()

	explorerURL := s.chains.ExplorerURL(chainID)
	resolved := make(map[uint64]struct{})
	notifications := make([]domain.Notification, 0)
	for i, t := range snapshot {
		outcome := t.tx.Resolve(receipts[i])
		if outcome == domain.TxPending {
			continue
		}

		resolved[t.id] = struct{}{}
		stats.IncResolvedTxs(outcome.String())
		log.Debugf("tx %s %s", t.tx.Hash.Hex(), outcome)

		txURL := txURL(explorerURL, t.tx.Hash)
		if n, ok := t.tx.Notification(outcome, txURL); ok {
			notifications = append(notifications, *n)
		}
	}

	tracked := s.removeResolved(resolved)
	stats.IncReconciliationPasses()
	log.Debugf(
		"reconciliation pass on chain %d: checked %d txs, resolved %d, still tracking %d",
		chainID, len(snapshot), len(resolved), tracked,
	)

	for _, n := range notifications {
		s.notifier.Notify(n)
	}
	return len(resolved)
}

func (s *pendingTxService) snapshot() []trackedTx {
	s.txLock.RLock()
	defer s.txLock.RUnlock()

	snapshot := make([]trackedTx, len(s.txs))
	copy(snapshot, s.txs)
	return snapshot
}

// removeResolved replaces the collection as a whole, and only if anything
// was resolved. Entries registered while the pass was running are kept.
func (s *pendingTxService) removeResolved(resolved map[uint64]struct{}) int {
	s.txLock.Lock()
	defer s.txLock.Unlock()

	if len(resolved) <= 0 {
		return len(s.txs)
	}

	txs := make([]trackedTx, 0, len(s.txs))
	for _, t := range s.txs {
		if _, ok := resolved[t.id]; ok {
			continue
		}
		txs = append(txs, t)
	}
	s.txs = txs
	stats.SetTrackedTxs(len(s.txs))
	return len(s.txs)
}
