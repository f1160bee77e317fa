package application_test

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/mock"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

// **** Connectors ****

type mockConnector struct {
	mock.Mock
	kind domain.ConnectorKind

	lock         sync.Mutex
	handlers     map[int]func(ports.ConnectorEvent)
	nextID       int
	subscribed   int
	unsubscribed int
}

func newMockConnector(kind domain.ConnectorKind) *mockConnector {
	return &mockConnector{
		kind:     kind,
		handlers: make(map[int]func(ports.ConnectorEvent)),
	}
}

func (m *mockConnector) Kind() domain.ConnectorKind {
	return m.kind
}

func (m *mockConnector) Activate(ctx context.Context) (*ports.Activation, error) {
	args := m.Called(ctx)

	var res *ports.Activation
	if a := args.Get(0); a != nil {
		res = a.(*ports.Activation)
	}
	return res, args.Error(1)
}

func (m *mockConnector) Deactivate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockConnector) Subscribe(handler func(ports.ConnectorEvent)) func() {
	m.lock.Lock()
	defer m.lock.Unlock()

	id := m.nextID
	m.nextID++
	m.handlers[id] = handler
	m.subscribed++

	return func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		if _, ok := m.handlers[id]; ok {
			delete(m.handlers, id)
			m.unsubscribed++
		}
	}
}

func (m *mockConnector) emit(event ports.ConnectorEvent) {
	m.lock.Lock()
	handlers := make([]func(ports.ConnectorEvent), 0, len(m.handlers))
	for _, h := range m.handlers {
		handlers = append(handlers, h)
	}
	m.lock.Unlock()

	for _, h := range handlers {
		h(event)
	}
}

func (m *mockConnector) numOfHandlers() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return len(m.handlers)
}

type mockInjectedConnector struct {
	*mockConnector
}

func newMockInjectedConnector() *mockInjectedConnector {
	return &mockInjectedConnector{newMockConnector(domain.ConnectorInjected)}
}

func (m *mockInjectedConnector) IsPresent(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *mockInjectedConnector) IsAuthorized(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}

func (m *mockInjectedConnector) Close() {}

type mockRelayConnector struct {
	*mockConnector
}

func newMockRelayConnector() *mockRelayConnector {
	return &mockRelayConnector{newMockConnector(domain.ConnectorRelay)}
}

func (m *mockRelayConnector) ClearSession(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// **** Notifier ****

type mockNotifier struct {
	lock          sync.Mutex
	notifications []domain.Notification
}

func (m *mockNotifier) Notify(n domain.Notification) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.notifications = append(m.notifications, n)
}

func (m *mockNotifier) all() []domain.Notification {
	m.lock.Lock()
	defer m.lock.Unlock()
	return append([]domain.Notification{}, m.notifications...)
}

// **** Host ****

type mockHost struct {
	mock.Mock
}

func (m *mockHost) OpenWalletModal() {
	m.Called()
}

func (m *mockHost) CloseWalletModal() {
	m.Called()
}

func (m *mockHost) OpenSettingsModal() {
	m.Called()
}

func (m *mockHost) CloseSettingsModal() {
	m.Called()
}

// **** Receipts ****

type mockReceiptSource struct {
	mock.Mock
}

func (m *mockReceiptSource) GetTransactionReceipt(
	ctx context.Context, hash common.Hash,
) (*domain.Receipt, error) {
	args := m.Called(ctx, hash)

	var res *domain.Receipt
	if a := args.Get(0); a != nil {
		res = a.(*domain.Receipt)
	}
	return res, args.Error(1)
}

type mockChainRegistry struct {
	mock.Mock

	lock        sync.Mutex
	sourceCalls map[uint64]int
}

func (m *mockChainRegistry) DefaultChainID() uint64 {
	args := m.Called()
	return args.Get(0).(uint64)
}

func (m *mockChainRegistry) IsSupported(chainID uint64) bool {
	args := m.Called(chainID)
	return args.Bool(0)
}

func (m *mockChainRegistry) ChainName(chainID uint64) string {
	args := m.Called(chainID)
	return args.String(0)
}

func (m *mockChainRegistry) ExplorerURL(chainID uint64) string {
	args := m.Called(chainID)
	return args.String(0)
}

func (m *mockChainRegistry) ReceiptSource(
	ctx context.Context, chainID uint64,
) (ports.ReceiptSource, error) {
	m.lock.Lock()
	if m.sourceCalls == nil {
		m.sourceCalls = make(map[uint64]int)
	}
	m.sourceCalls[chainID]++
	m.lock.Unlock()

	args := m.Called(ctx, chainID)

	var res ports.ReceiptSource
	if a := args.Get(0); a != nil {
		res = a.(ports.ReceiptSource)
	}
	return res, args.Error(1)
}

func (m *mockChainRegistry) numOfSourceCalls(chainID uint64) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.sourceCalls[chainID]
}

func (m *mockChainRegistry) Close() {
	m.Called()
}
