package inmemory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
)

type SettingsRepositoryImpl struct {
	store *settingsInmemoryStore
}

// NewSettingsRepositoryImpl returns a new empty SettingsRepositoryImpl
func NewSettingsRepositoryImpl(store *settingsInmemoryStore) domain.SettingsRepository {
	return &SettingsRepositoryImpl{store}
}

func (r SettingsRepositoryImpl) GetSettings(
	ctx context.Context, chainID uint64,
) (*domain.Settings, error) {
	r.store.locker.RLock()
	defer r.store.locker.RUnlock()

	return r.getSettings(chainID)
}

func (r SettingsRepositoryImpl) UpdateSettings(
	ctx context.Context,
	chainID uint64,
	updateFn func(s *domain.Settings) (*domain.Settings, error),
) error {
	r.store.locker.Lock()
	defer r.store.locker.Unlock()

	settings, err := r.getSettings(chainID)
	if err != nil {
		return err
	}

	updatedSettings, err := updateFn(settings)
	if err != nil {
		return err
	}

	stored := make(map[string]string)
	stored[domain.SlippageBpsKey] = strconv.FormatInt(updatedSettings.SlippageBps, 10)
	stored[domain.IsPnlInLeverageKey] = strconv.FormatBool(updatedSettings.IsPnlInLeverage)
	stored[domain.ShouldShowPositionLinesKey] = strconv.FormatBool(
		updatedSettings.ShouldShowPositionLines,
	)
	r.store.settings[chainID] = stored
	return nil
}

func (r SettingsRepositoryImpl) getSettings(chainID uint64) (*domain.Settings, error) {
	settings := domain.NewDefaultSettings(chainID)

	stored, ok := r.store.settings[chainID]
	if !ok {
		return settings, nil
	}

	for name, value := range stored {
		var err error
		switch name {
		case domain.SlippageBpsKey:
			settings.SlippageBps, err = strconv.ParseInt(value, 10, 64)
		case domain.IsPnlInLeverageKey:
			settings.IsPnlInLeverage, err = strconv.ParseBool(value)
		case domain.ShouldShowPositionLinesKey:
			settings.ShouldShowPositionLines, err = strconv.ParseBool(value)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid stored setting %s: %w", name, err)
		}
	}
	return settings, nil
}
