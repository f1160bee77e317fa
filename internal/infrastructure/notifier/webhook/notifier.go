package webhooknotifier

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
	"github.com/tdex-network/tdex-walletkit/pkg/circuitbreaker"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultRequestTimeout = 10 * time.Second

	// maxErrorBodySize caps the response body reported for a failed call.
	maxErrorBodySize = 512
)

// Notifier is a ports.Notifier that can be closed.
type Notifier interface {
	ports.Notifier
	// Close waits for the pending webhook calls.
	Close()
}

type notifier struct {
	hooks      []*Webhook
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
	pending    *sync.WaitGroup
}

// NewNotifier returns a notifier POSTing every notification to all the given
// endpoints. The same secret, if any, is used to sign the calls to every
// endpoint.
func NewNotifier(
	endpoints []string, secret string, requestTimeout time.Duration,
) (Notifier, error) {
	if len(endpoints) <= 0 {
		return nil, ErrMissingEndpoints
	}
	if requestTimeout <= 0 {
		requestTimeout = DefaultRequestTimeout
	}

	hooks := make([]*Webhook, 0, len(endpoints))
	for _, endpoint := range endpoints {
		hook, err := NewWebhook(endpoint, secret)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", endpoint, err)
		}
		hooks = append(hooks, hook)
	}

	return &notifier{
		hooks:      hooks,
		httpClient: &http.Client{Timeout: requestTimeout},
		cb:         circuitbreaker.NewCircuitBreaker("webhook"),
		pending:    &sync.WaitGroup{},
	}, nil
}

func (n *notifier) Notify(notification domain.Notification) {
	n.pending.Add(1)
	go func() {
		defer n.pending.Done()

		if err := n.invokeWebhooks(context.Background(), notification); err != nil {
			log.WithError(err).Warn("failed to invoke notification webhooks")
		}
	}()
}

func (n *notifier) Close() {
	n.pending.Wait()
}

// invokeWebhooks makes a POST request to every webhook endpoint.
// Requests go through a circuit breaker so that unreachable endpoints stop
// being hammered.
func (n *notifier) invokeWebhooks(
	ctx context.Context, notification domain.Notification,
) error {
	payload, err := newMessage(notification)
	if err != nil {
		return err
	}

	eg := &errgroup.Group{}
	for i := range n.hooks {
		hook := n.hooks[i]
		eg.Go(func() error {
			return n.doRequest(ctx, hook, notification.ID, payload)
		})
	}
	return eg.Wait()
}

func (n *notifier) doRequest(
	ctx context.Context, hook *Webhook, notificationID string, payload []byte,
) error {
	_, err := n.cb.Execute(func() (interface{}, error) {
		return nil, n.post(ctx, hook, notificationID, payload)
	})
	return err
}

func (n *notifier) post(
	ctx context.Context, hook *Webhook, notificationID string, payload []byte,
) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, hook.Endpoint, bytes.NewReader(payload),
	)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if hook.IsSecured() {
		tokenString, err := hook.token(notificationID)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", tokenString))
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return fmt.Errorf("%s: %d %s", hook.Endpoint, resp.StatusCode, body)
	}
	//nolint
	io.Copy(io.Discard, resp.Body)
	return nil
}
