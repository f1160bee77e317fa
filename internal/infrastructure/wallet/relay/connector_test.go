package relay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/storage/db/inmemory"
)

var (
	ctx          = context.Background()
	account      = common.HexToAddress("0x5B38Da6a701c568545dCfcB03FcB875f56beddC4")
	otherAccount = common.HexToAddress("0xAb8483F64d9C6d1EcF9b849Ae677dD3315835cb2")
)

func TestPairing(t *testing.T) {
	t.Run("approved", func(t *testing.T) {
		f := newFixture(t, time.Second)

		activation, wallet := f.pair(t, methodApprove)
		require.NotNil(t, activation)
		require.Equal(t, account, activation.Account)
		require.Equal(t, uint64(42161), activation.ChainID)
		require.Equal(t, domain.ConnectorRelay, f.connector.Kind())

		session, err := f.repo.GetSession(ctx)
		require.NoError(t, err)
		require.Equal(t, wallet.topic, session.Topic)
		require.Equal(t, wallet.peerID, session.PeerID)
		require.True(t, session.IsApproved())
	})

	t.Run("rejected", func(t *testing.T) {
		f := newFixture(t, time.Second)

		activation, _ := f.pair(t, methodReject)
		require.Nil(t, activation)
		require.ErrorIs(t, f.activationErr, domain.ErrUserRejected)

		_, err := f.repo.GetSession(ctx)
		require.ErrorIs(t, err, domain.ErrRelaySessionNotFound)
	})

	t.Run("timeout", func(t *testing.T) {
		f := newFixture(t, 50*time.Millisecond)

		activation, err := f.connector.Activate(ctx)
		require.ErrorIs(t, err, domain.ErrActivationTimeout)
		require.Nil(t, activation)
		require.Equal(t, 1, f.numOfURIs())
	})

	t.Run("unreachable bridge", func(t *testing.T) {
		connector, err := NewConnector(Opts{
			BridgeURL:  "ws://127.0.0.1:1",
			Repository: inmemory.NewRepoManager().RelaySessionRepository(),
		})
		require.NoError(t, err)

		_, err = connector.Activate(ctx)
		require.Error(t, err)
	})
}

func TestSessionEvents(t *testing.T) {
	t.Run("update", func(t *testing.T) {
		f := newFixture(t, time.Second)
		_, wallet := f.pair(t, methodApprove)

		recorder := &eventRecorder{}
		unsubscribe := f.connector.Subscribe(recorder.handle)
		defer unsubscribe()

		wallet.publish(t, wallet.key, sessionPayload{
			Method:   methodUpdate,
			Accounts: []string{otherAccount.Hex()},
			ChainID:  56,
		})
		require.Eventually(t, func() bool {
			return len(recorder.all()) == 2
		}, time.Second, 5*time.Millisecond)

		events := recorder.all()
		require.Equal(t, ports.AccountChanged, events[0].Type)
		require.Equal(t, otherAccount, events[0].Account)
		require.Equal(t, ports.ChainChanged, events[1].Type)
		require.Equal(t, uint64(56), events[1].ChainID)

		session, err := f.repo.GetSession(ctx)
		require.NoError(t, err)
		require.Equal(t, otherAccount, session.Account())
		require.Equal(t, uint64(56), session.ChainID)
	})

	t.Run("invalid signature", func(t *testing.T) {
		f := newFixture(t, time.Second)
		_, wallet := f.pair(t, methodApprove)

		recorder := &eventRecorder{}
		unsubscribe := f.connector.Subscribe(recorder.handle)
		defer unsubscribe()

		wallet.publish(t, "not-the-session-key", sessionPayload{
			Method: methodDelete,
		})
		time.Sleep(50 * time.Millisecond)
		require.Empty(t, recorder.all())
	})

	t.Run("deleted by wallet", func(t *testing.T) {
		f := newFixture(t, time.Second)
		_, wallet := f.pair(t, methodApprove)

		recorder := &eventRecorder{}
		unsubscribe := f.connector.Subscribe(recorder.handle)
		defer unsubscribe()

		wallet.publish(t, wallet.key, sessionPayload{Method: methodDelete})
		require.Eventually(t, func() bool {
			return len(recorder.all()) == 1
		}, time.Second, 5*time.Millisecond)
		require.Equal(t, ports.Disconnected, recorder.all()[0].Type)

		_, err := f.repo.GetSession(ctx)
		require.ErrorIs(t, err, domain.ErrRelaySessionNotFound)
	})

	t.Run("socket drop", func(t *testing.T) {
		f := newFixture(t, time.Second)
		f.pair(t, methodApprove)

		recorder := &eventRecorder{}
		unsubscribe := f.connector.Subscribe(recorder.handle)
		defer unsubscribe()

		f.bridge.dropAll()
		require.Eventually(t, func() bool {
			return len(recorder.all()) == 1
		}, time.Second, 5*time.Millisecond)
		require.Equal(t, ports.Disconnected, recorder.all()[0].Type)
	})

	t.Run("deactivate", func(t *testing.T) {
		f := newFixture(t, time.Second)
		_, wallet := f.pair(t, methodApprove)

		recorder := &eventRecorder{}
		unsubscribe := f.connector.Subscribe(recorder.handle)
		defer unsubscribe()

		require.NoError(t, f.connector.Deactivate(ctx))
		require.NoError(t, f.connector.Deactivate(ctx))

		wallet.publish(t, wallet.key, sessionPayload{
			Method: methodUpdate, Accounts: []string{otherAccount.Hex()},
		})
		time.Sleep(50 * time.Millisecond)
		require.Empty(t, recorder.all())
	})
}

func TestResumeSession(t *testing.T) {
	f := newFixture(t, time.Second)
	_, wallet := f.pair(t, methodApprove)

	require.NoError(t, f.connector.Deactivate(ctx))

	activation, err := f.connector.Activate(ctx)
	require.NoError(t, err)
	require.Equal(t, account, activation.Account)
	require.Equal(t, uint64(42161), activation.ChainID)
	// no new pairing uri is shown for a resumed session
	require.Equal(t, 1, f.numOfURIs())

	recorder := &eventRecorder{}
	unsubscribe := f.connector.Subscribe(recorder.handle)
	defer unsubscribe()

	wallet.publish(t, wallet.key, sessionPayload{
		Method: methodUpdate, Accounts: []string{account.Hex()}, ChainID: 56,
	})
	require.Eventually(t, func() bool {
		return len(recorder.all()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, ports.ChainChanged, recorder.all()[0].Type)
}

func TestActivateLiveSession(t *testing.T) {
	f := newFixture(t, time.Second)
	_, wallet := f.pair(t, methodApprove)

	recorder := &eventRecorder{}
	unsubscribe := f.connector.Subscribe(recorder.handle)
	defer unsubscribe()

	f.bridge.refuseNewConns()

	activation, err := f.connector.Activate(ctx)
	require.NoError(t, err)
	require.Equal(t, account, activation.Account)
	require.Equal(t, uint64(42161), activation.ChainID)
	require.Equal(t, 1, f.numOfURIs())

	wallet.publish(t, wallet.key, sessionPayload{
		Method: methodUpdate, Accounts: []string{otherAccount.Hex()},
	})
	require.Eventually(t, func() bool {
		return len(recorder.all()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, ports.AccountChanged, recorder.all()[0].Type)
	require.Equal(t, otherAccount, recorder.all()[0].Account)
}

func TestClearSession(t *testing.T) {
	f := newFixture(t, time.Second)
	_, wallet := f.pair(t, methodApprove)

	require.NoError(t, f.connector.ClearSession(ctx))
	require.NoError(t, f.connector.Deactivate(ctx))

	payload := wallet.read(t)
	require.Equal(t, methodDelete, payload.Method)

	_, err := f.repo.GetSession(ctx)
	require.ErrorIs(t, err, domain.ErrRelaySessionNotFound)

	// clearing without a session is a no-op
	require.NoError(t, f.connector.ClearSession(ctx))
}

type fixture struct {
	bridge    *testBridge
	repo      domain.RelaySessionRepository
	connector ports.RelayConnector

	uriLock       sync.Mutex
	uris          []string
	uriChan       chan string
	activationErr error
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	bridge := newTestBridge()
	t.Cleanup(bridge.close)

	f := &fixture{
		bridge:  bridge,
		repo:    inmemory.NewRepoManager().RelaySessionRepository(),
		uriChan: make(chan string, 1),
	}

	connector, err := NewConnector(Opts{
		BridgeURL:  bridge.url(),
		Timeout:    timeout,
		Repository: f.repo,
		DisplayURI: func(uri string) {
			f.uriLock.Lock()
			f.uris = append(f.uris, uri)
			f.uriLock.Unlock()
			select {
			case f.uriChan <- uri:
			default:
			}
		},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		connector.Deactivate(ctx)
	})
	f.connector = connector

	return f
}

func (f *fixture) numOfURIs() int {
	f.uriLock.Lock()
	defer f.uriLock.Unlock()
	return len(f.uris)
}

// pair activates the connector and answers the pairing request with the
// given method from a test wallet.
func (f *fixture) pair(t *testing.T, method string) (*ports.Activation, *testWallet) {
	type result struct {
		activation *ports.Activation
		err        error
	}
	resChan := make(chan result, 1)
	go func() {
		activation, err := f.connector.Activate(ctx)
		resChan <- result{activation, err}
	}()

	var uri string
	select {
	case uri = <-f.uriChan:
	case <-time.After(time.Second):
		t.Fatal("pairing uri not displayed")
	}

	wallet := joinSession(t, f.bridge.url(), uri)
	wallet.publish(t, wallet.key, sessionPayload{
		Method:   method,
		PeerID:   wallet.peerID,
		Accounts: []string{account.Hex()},
		ChainID:  42161,
	})

	res := <-resChan
	f.activationErr = res.err
	return res.activation, wallet
}

type testWallet struct {
	conn   *websocket.Conn
	topic  string
	key    string
	peerID string
}

func joinSession(t *testing.T, bridgeURL, uri string) *testWallet {
	u, err := url.Parse(uri)
	require.NoError(t, err)
	require.Equal(t, "wc", u.Scheme)

	topic := strings.Split(u.Opaque, "@")[0]
	key := u.Query().Get("key")
	require.NotEmpty(t, topic)
	require.NotEmpty(t, key)

	conn, _, err := websocket.DefaultDialer.Dial(bridgeURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	w := &testWallet{
		conn:   conn,
		topic:  topic,
		key:    key,
		peerID: "peer-" + topic,
	}
	require.NoError(t, conn.WriteJSON(socketMessage{
		Topic: w.peerID, Type: messageSub, Silent: true,
	}))
	return w
}

func (w *testWallet) publish(t *testing.T, key string, payload sessionPayload) {
	data, err := encodePayload(key, payload)
	require.NoError(t, err)
	require.NoError(t, w.conn.WriteJSON(socketMessage{
		Topic: w.topic, Type: messagePub, Payload: data,
	}))
}

func (w *testWallet) read(t *testing.T) *sessionPayload {
	require.NoError(t, w.conn.SetReadDeadline(time.Now().Add(time.Second)))
	var msg socketMessage
	require.NoError(t, w.conn.ReadJSON(&msg))
	require.Equal(t, w.peerID, msg.Topic)

	payload, err := decodePayload(w.key, msg.Payload)
	require.NoError(t, err)
	return payload
}

type eventRecorder struct {
	lock   sync.Mutex
	events []ports.ConnectorEvent
}

func (r *eventRecorder) handle(e ports.ConnectorEvent) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) all() []ports.ConnectorEvent {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]ports.ConnectorEvent{}, r.events...)
}

type bridgeConn struct {
	*websocket.Conn
	lock sync.Mutex
}

func (c *bridgeConn) send(msg socketMessage) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.WriteJSON(msg)
}

// testBridge is a minimal pub/sub relay. Messages published to topics with
// no subscriber are queued until someone subscribes.
type testBridge struct {
	server *httptest.Server

	lock    sync.Mutex
	conns   map[*bridgeConn]struct{}
	subs    map[string][]*bridgeConn
	pending map[string][]socketMessage
	refuse  bool
}

func newTestBridge() *testBridge {
	b := &testBridge{
		conns:   make(map[*bridgeConn]struct{}),
		subs:    make(map[string][]*bridgeConn),
		pending: make(map[string][]socketMessage),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	return b
}

func (b *testBridge) url() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http")
}

func (b *testBridge) handle(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	refuse := b.refuse
	b.lock.Unlock()
	if refuse {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	upgrader := websocket.Upgrader{}
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	conn := &bridgeConn{Conn: ws}

	b.lock.Lock()
	b.conns[conn] = struct{}{}
	b.lock.Unlock()

	defer b.remove(conn)

	for {
		var msg socketMessage
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case messageSub:
			b.subscribe(msg.Topic, conn)
		case messagePub:
			b.publish(msg)
		}
	}
}

func (b *testBridge) subscribe(topic string, conn *bridgeConn) {
	b.lock.Lock()
	b.subs[topic] = append(b.subs[topic], conn)
	queued := b.pending[topic]
	delete(b.pending, topic)
	b.lock.Unlock()

	for _, msg := range queued {
		conn.send(msg)
	}
}

func (b *testBridge) publish(msg socketMessage) {
	b.lock.Lock()
	subs := append([]*bridgeConn{}, b.subs[msg.Topic]...)
	if len(subs) <= 0 {
		b.pending[msg.Topic] = append(b.pending[msg.Topic], msg)
	}
	b.lock.Unlock()

	for _, conn := range subs {
		conn.send(msg)
	}
}

func (b *testBridge) remove(conn *bridgeConn) {
	b.lock.Lock()
	defer b.lock.Unlock()

	delete(b.conns, conn)
	for topic, subs := range b.subs {
		for i, c := range subs {
			if c == conn {
				b.subs[topic] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
	conn.Close()
}

// refuseNewConns makes the bridge reject any further dial, the connections
// already established keep working.
func (b *testBridge) refuseNewConns() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.refuse = true
}

func (b *testBridge) dropAll() {
	b.lock.Lock()
	conns := make([]*bridgeConn, 0, len(b.conns))
	for conn := range b.conns {
		conns = append(conns, conn)
	}
	b.lock.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}

func (b *testBridge) close() {
	b.dropAll()
	b.server.Close()
}
