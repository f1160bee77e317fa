package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/wallet"
	"github.com/thanhpk/randstr"
)

const (
	DefaultTimeout = 120 * time.Second

	keyLength = 64
)

// Opts defines the parameters needed for creating a relay connector.
type Opts struct {
	BridgeURL  string
	Timeout    time.Duration
	Repository domain.RelaySessionRepository
	// DisplayURI shows the pairing uri to the user, ie. as a QR code.
	DisplayURI func(uri string)
}

func (o Opts) validate() error {
	if len(o.BridgeURL) <= 0 {
		return fmt.Errorf("missing bridge url")
	}
	if o.Repository == nil {
		return fmt.Errorf("missing relay session repository")
	}
	return nil
}

type connector struct {
	bridgeURL  string
	timeout    time.Duration
	repo       domain.RelaySessionRepository
	displayURI func(string)
	emitter    *wallet.Emitter

	lock         *sync.Mutex
	writeLock    *sync.Mutex
	conn         *websocket.Conn
	session      *domain.RelaySession
	approvalChan chan sessionPayload
	activity     *sync.WaitGroup
}

// NewConnector returns a relay connector pairing with a remote wallet
// through the websocket bridge at the given url.
func NewConnector(opts Opts) (ports.RelayConnector, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	displayURI := opts.DisplayURI
	if displayURI == nil {
		displayURI = func(uri string) {
			log.Infof("scan with your wallet to connect: %s", uri)
		}
	}

	return &connector{
		bridgeURL:  opts.BridgeURL,
		timeout:    timeout,
		repo:       opts.Repository,
		displayURI: displayURI,
		emitter:    wallet.NewEmitter(),
		lock:       &sync.Mutex{},
		writeLock:  &sync.Mutex{},
		activity:   &sync.WaitGroup{},
	}, nil
}

func (c *connector) Kind() domain.ConnectorKind {
	return domain.ConnectorRelay
}

func (c *connector) Activate(ctx context.Context) (*ports.Activation, error) {
	// A live session stays attached, the bridge connection is reused.
	c.lock.Lock()
	conn, session := c.conn, c.session
	c.lock.Unlock()
	if conn != nil && session != nil && session.IsApproved() {
		log.Debugf("relay session %s already connected", session.Topic)
		return &ports.Activation{Account: session.Account(), ChainID: session.ChainID}, nil
	}

	c.closeConn()

	session, err := c.repo.GetSession(ctx)
	if err != nil && !errors.Is(err, domain.ErrRelaySessionNotFound) {
		return nil, err
	}
	if session != nil && session.IsApproved() {
		return c.resume(ctx, *session)
	}

	return c.pair(ctx)
}

func (c *connector) Deactivate(ctx context.Context) error {
	c.closeConn()
	return nil
}

func (c *connector) Subscribe(handler func(ports.ConnectorEvent)) func() {
	return c.emitter.Subscribe(handler)
}

// ClearSession tells the peer wallet the session is over, if still
// connected, and deletes the persisted session.
func (c *connector) ClearSession(ctx context.Context) error {
	c.lock.Lock()
	conn, session := c.conn, c.session
	c.lock.Unlock()

	if conn != nil && session != nil && session.PeerID != "" {
		if err := c.publish(
			conn, session.Key, session.PeerID, sessionPayload{Method: methodDelete},
		); err != nil {
			log.WithError(err).Debug("failed to notify relay session deletion")
		}
	}

	c.lock.Lock()
	c.session = nil
	c.lock.Unlock()

	return c.repo.DeleteSession(ctx)
}

func (c *connector) resume(
	ctx context.Context, session domain.RelaySession,
) (*ports.Activation, error) {
	if _, err := c.open(ctx, session); err != nil {
		return nil, err
	}

	log.Debugf("resumed relay session %s", session.Topic)
	return &ports.Activation{Account: session.Account(), ChainID: session.ChainID}, nil
}

func (c *connector) pair(ctx context.Context) (*ports.Activation, error) {
	session := domain.RelaySession{
		Topic:     uuid.New().String(),
		Key:       randstr.Hex(keyLength),
		BridgeURL: c.bridgeURL,
		CreatedAt: time.Now().Unix(),
	}

	approvalChan := make(chan sessionPayload, 1)
	c.lock.Lock()
	c.approvalChan = approvalChan
	c.lock.Unlock()
	defer func() {
		c.lock.Lock()
		c.approvalChan = nil
		c.lock.Unlock()
	}()

	done, err := c.open(ctx, session)
	if err != nil {
		return nil, err
	}

	c.displayURI(session.PairingURI())

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var approval sessionPayload
	select {
	case approval = <-approvalChan:
	case <-done:
		return nil, fmt.Errorf("relay bridge connection dropped")
	case <-timer.C:
		c.closeConn()
		return nil, domain.ErrActivationTimeout
	case <-ctx.Done():
		c.closeConn()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, domain.ErrActivationTimeout
		}
		return nil, ctx.Err()
	}

	if approval.Method == methodReject {
		c.closeConn()
		return nil, domain.ErrUserRejected
	}

	session.PeerID = approval.PeerID
	session.Accounts = approval.Accounts
	session.ChainID = approval.ChainID
	if !session.IsApproved() {
		c.closeConn()
		return nil, domain.ErrMissingAccount
	}

	if err := c.repo.SaveSession(ctx, session); err != nil {
		c.closeConn()
		return nil, err
	}

	c.lock.Lock()
	c.session = &session
	c.lock.Unlock()

	log.Debugf("relay session %s approved by peer %s", session.Topic, session.PeerID)
	return &ports.Activation{Account: session.Account(), ChainID: session.ChainID}, nil
}

// open dials the bridge, subscribes to the session topic and starts reading
// from the socket. The returned channel is closed once the reader exits.
func (c *connector) open(
	ctx context.Context, session domain.RelaySession,
) (chan struct{}, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, session.BridgeURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to relay bridge: %w", err)
	}

	if err := c.write(conn, socketMessage{
		Topic: session.Topic, Type: messageSub, Silent: true,
	}); err != nil {
		conn.Close()
		return nil, err
	}

	c.lock.Lock()
	c.conn = conn
	if session.IsApproved() {
		c.session = &session
	}
	c.lock.Unlock()

	done := make(chan struct{})
	c.activity.Add(1)
	go func() {
		defer c.activity.Done()
		defer close(done)
		c.listen(conn, session.Topic, session.Key)
	}()

	return done, nil
}

func (c *connector) listen(conn *websocket.Conn, topic, key string) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			c.connDropped(conn, err)
			return
		}

		var msg socketMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.WithError(err).Debug("skipping malformed relay message")
			continue
		}
		if msg.Type != messagePub || msg.Topic != topic {
			continue
		}

		payload, err := decodePayload(key, msg.Payload)
		if err != nil {
			log.WithError(err).Warn("skipping relay message")
			continue
		}

		c.handlePayload(conn, *payload)
	}
}

func (c *connector) handlePayload(conn *websocket.Conn, payload sessionPayload) {
	switch payload.Method {
	case methodApprove, methodReject:
		c.lock.Lock()
		approvalChan := c.approvalChan
		c.lock.Unlock()
		if approvalChan == nil {
			return
		}
		select {
		case approvalChan <- payload:
		default:
		}

	case methodUpdate:
		c.lock.Lock()
		if c.conn != conn || c.session == nil {
			c.lock.Unlock()
			return
		}
		session := *c.session
		prevAccount, prevChainID := session.Account(), session.ChainID
		session.Accounts = payload.Accounts
		if payload.ChainID > 0 {
			session.ChainID = payload.ChainID
		}
		c.session = &session
		c.lock.Unlock()

		if err := c.repo.SaveSession(context.Background(), session); err != nil {
			log.WithError(err).Warn("failed to persist relay session update")
		}

		if account := session.Account(); account != prevAccount {
			c.emitter.Emit(ports.ConnectorEvent{
				Type: ports.AccountChanged, Account: account,
			})
		}
		if session.ChainID != prevChainID {
			c.emitter.Emit(ports.ConnectorEvent{
				Type: ports.ChainChanged, ChainID: session.ChainID,
			})
		}

	case methodDelete:
		c.lock.Lock()
		if c.conn != conn {
			c.lock.Unlock()
			return
		}
		c.conn = nil
		c.session = nil
		c.lock.Unlock()

		conn.Close()
		if err := c.repo.DeleteSession(context.Background()); err != nil {
			log.WithError(err).Warn("failed to delete relay session")
		}
		log.Info("relay session ended by the wallet")
		c.emitter.Emit(ports.ConnectorEvent{Type: ports.Disconnected})
	}
}

// connDropped is called by the reader once the socket errors. Sockets
// closed on purpose are already detached and produce no event.
func (c *connector) connDropped(conn *websocket.Conn, err error) {
	c.lock.Lock()
	if c.conn != conn {
		c.lock.Unlock()
		return
	}
	c.conn = nil
	wasApproved := c.session != nil
	c.lock.Unlock()

	conn.Close()
	log.WithError(err).Warn("relay bridge connection dropped")
	if wasApproved {
		c.emitter.Emit(ports.ConnectorEvent{Type: ports.Disconnected})
	}
}

func (c *connector) closeConn() {
	c.lock.Lock()
	conn := c.conn
	c.conn = nil
	c.session = nil
	c.lock.Unlock()

	if conn != nil {
		c.writeLock.Lock()
		conn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
		c.writeLock.Unlock()
		conn.Close()
	}
	c.activity.Wait()
}

func (c *connector) publish(
	conn *websocket.Conn, key, topic string, payload sessionPayload,
) error {
	data, err := encodePayload(key, payload)
	if err != nil {
		return err
	}
	return c.write(conn, socketMessage{
		Topic: topic, Type: messagePub, Payload: data,
	})
}

func (c *connector) write(conn *websocket.Conn, msg socketMessage) error {
	c.writeLock.Lock()
	defer c.writeLock.Unlock()
	return conn.WriteJSON(msg)
}
