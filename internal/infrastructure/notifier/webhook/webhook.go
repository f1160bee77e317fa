package webhooknotifier

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
)

// Webhook is an endpoint every notification is POSTed to. Calls are signed
// with an HS256 bearer token if the hook has a secret.
type Webhook struct {
	ID       string `json:"id"`
	Endpoint string `json:"endpoint"`
	Secret   string `json:"secret"`
}

func NewWebhook(endpoint, secret string) (*Webhook, error) {
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, ErrInvalidEndpoint
	}
	return &Webhook{uuid.New().String(), endpoint, secret}, nil
}

func (h *Webhook) IsSecured() bool {
	return len(h.Secret) > 0
}

func (h *Webhook) token(notificationID string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Id:       notificationID,
		IssuedAt: time.Now().Unix(),
	})
	return token.SignedString([]byte(h.Secret))
}

// message is the body of a webhook call.
type message struct {
	ID        string `json:"id"`
	Kind      string `json:"kind"`
	Content   string `json:"content"`
	TxURL     string `json:"txUrl,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

func newMessage(n domain.Notification) ([]byte, error) {
	return json.Marshal(message{
		ID:        n.ID,
		Kind:      n.Kind.String(),
		Content:   n.Content,
		TxURL:     n.TxURL,
		CreatedAt: n.CreatedAt.Unix(),
	})
}
