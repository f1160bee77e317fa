package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind is the category of a user-facing notification.
type NotificationKind int

const (
	NotificationSuccess NotificationKind = iota
	NotificationError
)

func (k NotificationKind) String() string {
	if k == NotificationError {
		return "error"
	}
	return "success"
}

// Notification is a user-facing toast.
type Notification struct {
	ID        string
	Kind      NotificationKind
	Content   string
	TxURL     string
	AutoClose time.Duration
	CreatedAt time.Time
}

// NewNotification returns a notification with a fresh id. AutoClose is left
// to the notifier's default.
func NewNotification(kind NotificationKind, content, txURL string) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Content:   content,
		TxURL:     txURL,
		CreatedAt: time.Now(),
	}
}

func (n Notification) String() string {
	if n.TxURL == "" {
		return n.Content
	}
	return n.Content + ". View: " + n.TxURL
}
