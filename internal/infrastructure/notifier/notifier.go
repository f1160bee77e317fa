package notifier

import (
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

type multiNotifier []ports.Notifier

// NewMultiNotifier returns a notifier forwarding every notification to all
// the given ones, in order. Nil notifiers are skipped.
func NewMultiNotifier(notifiers ...ports.Notifier) ports.Notifier {
	m := make(multiNotifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n != nil {
			m = append(m, n)
		}
	}
	return m
}

func (m multiNotifier) Notify(n domain.Notification) {
	for _, notifier := range m {
		notifier.Notify(n)
	}
}
