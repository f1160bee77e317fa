package ports

import "github.com/tdex-network/tdex-walletkit/internal/core/domain"

// Notifier shows user-facing notifications. Notify is fire-and-forget.
type Notifier interface {
	Notify(notification domain.Notification)
}

// Host is the UI layer owning the modals the core asks to open or close.
type Host interface {
	OpenWalletModal()
	CloseWalletModal()
	OpenSettingsModal()
	CloseSettingsModal()
}
