package dbbadger

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dgraph-io/badger/v3"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

// setting is a single persisted value, stored under the (chain, name) key.
type setting struct {
	ChainID uint64
	Name    string
	Value   string
}

func settingKey(chainID uint64, name string) string {
	return fmt.Sprintf("%d/%s", chainID, name)
}

type settingsRepositoryImpl struct {
	store *badgerhold.Store
}

func NewSettingsRepositoryImpl(store *badgerhold.Store) domain.SettingsRepository {
	return settingsRepositoryImpl{store}
}

func (r settingsRepositoryImpl) GetSettings(
	ctx context.Context, chainID uint64,
) (*domain.Settings, error) {
	var settings *domain.Settings
	err := r.store.Badger().View(func(tx *badger.Txn) error {
		var err error
		settings, err = r.getSettings(tx, chainID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (r settingsRepositoryImpl) UpdateSettings(
	ctx context.Context,
	chainID uint64,
	updateFn func(s *domain.Settings) (*domain.Settings, error),
) error {
	return r.store.Badger().Update(func(tx *badger.Txn) error {
		settings, err := r.getSettings(tx, chainID)
		if err != nil {
			return err
		}

		updatedSettings, err := updateFn(settings)
		if err != nil {
			return err
		}

		for _, s := range fromDomain(chainID, updatedSettings) {
			if err := r.store.TxUpsert(tx, settingKey(chainID, s.Name), s); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r settingsRepositoryImpl) getSettings(
	tx *badger.Txn, chainID uint64,
) (*domain.Settings, error) {
	var stored []setting
	query := badgerhold.Where("ChainID").Eq(chainID)
	if err := r.store.TxFind(tx, &stored, query); err != nil {
		return nil, err
	}

	return toDomain(chainID, stored)
}

func fromDomain(chainID uint64, s *domain.Settings) []setting {
	return []setting{
		{chainID, domain.SlippageBpsKey, strconv.FormatInt(s.SlippageBps, 10)},
		{chainID, domain.IsPnlInLeverageKey, strconv.FormatBool(s.IsPnlInLeverage)},
		{
			chainID, domain.ShouldShowPositionLinesKey,
			strconv.FormatBool(s.ShouldShowPositionLines),
		},
	}
}

func toDomain(chainID uint64, stored []setting) (*domain.Settings, error) {
	settings := domain.NewDefaultSettings(chainID)
	for _, s := range stored {
		var err error
		switch s.Name {
		case domain.SlippageBpsKey:
			settings.SlippageBps, err = strconv.ParseInt(s.Value, 10, 64)
		case domain.IsPnlInLeverageKey:
			settings.IsPnlInLeverage, err = strconv.ParseBool(s.Value)
		case domain.ShouldShowPositionLinesKey:
			settings.ShouldShowPositionLines, err = strconv.ParseBool(s.Value)
		}
		if err != nil {
			return nil, fmt.Errorf("invalid stored setting %s: %w", s.Name, err)
		}
	}
	return settings, nil
}
