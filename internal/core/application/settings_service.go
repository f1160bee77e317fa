package application

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/core/ports"
)

// SettingsForm is the editable view of a chain's settings.
type SettingsForm struct {
	SlippagePercent string
	IsPnlInLeverage bool
}

type SettingsService interface {
	GetSettings(ctx context.Context, chainID uint64) (*domain.Settings, error)
	// OpenSettings returns the form pre-filled with the stored values and
	// asks the host to show the settings modal.
	OpenSettings(ctx context.Context, chainID uint64) (*SettingsForm, error)
	// SaveSettings validates and persists the form. On validation failure
	// nothing is persisted and the modal stays open.
	SaveSettings(ctx context.Context, chainID uint64, form SettingsForm) error
	SetPnlInLeverage(ctx context.Context, chainID uint64, enabled bool) error
	SetShowPositionLines(ctx context.Context, chainID uint64, enabled bool) error
}

type settingsService struct {
	repoManager ports.RepoManager
	notifier    ports.Notifier
	host        ports.Host
}

func NewSettingsService(
	repoManager ports.RepoManager, notifier ports.Notifier, host ports.Host,
) (SettingsService, error) {
	if notifier == nil {
		return nil, ErrMissingNotifier
	}
	if host == nil {
		return nil, ErrMissingHost
	}
	return newSettingsService(repoManager, notifier, host), nil
}

func newSettingsService(
	repoManager ports.RepoManager, notifier ports.Notifier, host ports.Host,
) *settingsService {
	return &settingsService{repoManager, notifier, host}
}

func (s *settingsService) GetSettings(
	ctx context.Context, chainID uint64,
) (*domain.Settings, error) {
	return s.repoManager.SettingsRepository().GetSettings(ctx, chainID)
}

func (s *settingsService) OpenSettings(
	ctx context.Context, chainID uint64,
) (*SettingsForm, error) {
	settings, err := s.GetSettings(ctx, chainID)
	if err != nil {
		return nil, err
	}

	s.host.OpenSettingsModal()
	return &SettingsForm{
		SlippagePercent: settings.SlippagePercent(),
		IsPnlInLeverage: settings.IsPnlInLeverage,
	}, nil
}

func (s *settingsService) SaveSettings(
	ctx context.Context, chainID uint64, form SettingsForm,
) error {
	bps, err := domain.ParseSlippagePercent(form.SlippagePercent)
	if err != nil {
		s.notifier.Notify(*domain.NewNotification(
			domain.NotificationError, settingsErrorMessage(err), "",
		))
		return err
	}

	if err := s.repoManager.SettingsRepository().UpdateSettings(
		ctx, chainID, func(st *domain.Settings) (*domain.Settings, error) {
			st.SlippageBps = bps
			st.IsPnlInLeverage = form.IsPnlInLeverage
			return st, nil
		},
	); err != nil {
		return err
	}

	log.Infof(
		"settings saved for chain %d: slippage %s%%, pnl in leverage %t",
		chainID, domain.BpsToPercent(bps), form.IsPnlInLeverage,
	)
	s.host.CloseSettingsModal()
	return nil
}

func (s *settingsService) SetPnlInLeverage(
	ctx context.Context, chainID uint64, enabled bool,
) error {
	return s.repoManager.SettingsRepository().UpdateSettings(
		ctx, chainID, func(st *domain.Settings) (*domain.Settings, error) {
			st.IsPnlInLeverage = enabled
			return st, nil
		},
	)
}

func (s *settingsService) SetShowPositionLines(
	ctx context.Context, chainID uint64, enabled bool,
) error {
	return s.repoManager.SettingsRepository().UpdateSettings(
		ctx, chainID, func(st *domain.Settings) (*domain.Settings, error) {
			st.ShouldShowPositionLines = enabled
			return st, nil
		},
	)
}

func settingsErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrSlippageTooHigh):
		return "Slippage should be less than 5%"
	case errors.Is(err, domain.ErrSlippagePrecision):
		return "Max slippage precision is 0.01%"
	case errors.Is(err, domain.ErrSlippageNegative):
		return "Slippage must not be negative"
	default:
		return "Invalid slippage value"
	}
}
