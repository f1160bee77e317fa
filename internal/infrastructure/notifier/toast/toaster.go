package toast

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

const (
	DefaultAutoClose = 7 * time.Second
)

// Toaster shows at most one notification at a time and tracks the modals
// of a terminal host.
type Toaster interface {
	ports.Notifier
	ports.Host
	// Visible returns the notification currently shown, if any.
	Visible() (domain.Notification, bool)
	Dismiss()
	IsWalletModalOpen() bool
	IsSettingsModalOpen() bool
	Close()
}

type toaster struct {
	autoClose time.Duration
	logger    *log.Logger

	lock          *sync.Mutex
	visible       *domain.Notification
	timer         *time.Timer
	walletModal   bool
	settingsModal bool
}

// NewToaster returns a toaster rendering notifications with the given
// logger, or the standard one if nil. Notifications with no AutoClose of
// their own expire after autoClose, if positive.
func NewToaster(autoClose time.Duration, logger *log.Logger) Toaster {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &toaster{
		autoClose: autoClose,
		logger:    logger,
		lock:      &sync.Mutex{},
	}
}

func (t *toaster) Notify(n domain.Notification) {
	t.lock.Lock()
	t.stopTimer()
	t.visible = &n

	autoClose := n.AutoClose
	if autoClose <= 0 {
		autoClose = t.autoClose
	}
	if autoClose > 0 {
		id := n.ID
		t.timer = time.AfterFunc(autoClose, func() { t.expire(id) })
	}
	t.lock.Unlock()

	entry := t.logger.WithField("toast", n.ID)
	if n.Kind == domain.NotificationError {
		entry.Error(n.String())
		return
	}
	entry.Info(n.String())
}

func (t *toaster) Visible() (domain.Notification, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.visible == nil {
		return domain.Notification{}, false
	}
	return *t.visible, true
}

func (t *toaster) Dismiss() {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.stopTimer()
	t.visible = nil
}

func (t *toaster) OpenWalletModal() {
	t.setWalletModal(true)
	t.logger.Info("choose a wallet: connect injected | connect relay")
}

func (t *toaster) CloseWalletModal() {
	t.setWalletModal(false)
}

func (t *toaster) OpenSettingsModal() {
	t.setSettingsModal(true)
	t.logger.Debug("settings opened")
}

func (t *toaster) CloseSettingsModal() {
	t.setSettingsModal(false)
	t.logger.Debug("settings closed")
}

func (t *toaster) IsWalletModalOpen() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.walletModal
}

func (t *toaster) IsSettingsModalOpen() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.settingsModal
}

func (t *toaster) Close() {
	t.Dismiss()
}

func (t *toaster) setWalletModal(open bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.walletModal = open
}

func (t *toaster) setSettingsModal(open bool) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.settingsModal = open
}

// expire hides the notification only if it's still the visible one.
func (t *toaster) expire(id string) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.visible != nil && t.visible.ID == id {
		t.visible = nil
		t.timer = nil
	}
}

func (t *toaster) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
