package application_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/tdex-walletkit/internal/core/application"
	"github.com/tdex-network/tdex-walletkit/internal/core/domain"
	"github.com/tdex-network/tdex-walletkit/internal/infrastructure/storage/db/inmemory"
)

func newTestSettingsService(
	t *testing.T,
) (application.SettingsService, *mockNotifier, *mockHost) {
	notifier := &mockNotifier{}
	host := &mockHost{}
	host.On("OpenSettingsModal").Return()
	host.On("CloseSettingsModal").Return()

	svc, err := application.NewSettingsService(
		inmemory.NewRepoManager(), notifier, host,
	)
	require.NoError(t, err)
	return svc, notifier, host
}

func TestSaveSettings(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		svc, notifier, host := newTestSettingsService(t)

		err := svc.SaveSettings(ctx, arbitrum, application.SettingsForm{
			SlippagePercent: "0.30",
			IsPnlInLeverage: true,
		})
		require.NoError(t, err)
		require.Empty(t, notifier.all())
		host.AssertCalled(t, "CloseSettingsModal")

		settings, err := svc.GetSettings(ctx, arbitrum)
		require.NoError(t, err)
		require.Equal(t, int64(30), settings.SlippageBps)
		require.True(t, settings.IsPnlInLeverage)

		other, err := svc.GetSettings(ctx, avalanche)
		require.NoError(t, err)
		require.Equal(t, int64(domain.DefaultSlippageBps), other.SlippageBps)
		require.False(t, other.IsPnlInLeverage)
	})

	t.Run("invalid", func(t *testing.T) {
		tests := []struct {
			slippage        string
			expectedErr     error
			expectedContent string
		}{
			{"5.001", domain.ErrSlippageTooHigh, "Slippage should be less than 5%"},
			{"5", domain.ErrSlippageTooHigh, "Slippage should be less than 5%"},
			{"0.015", domain.ErrSlippagePrecision, "Max slippage precision is 0.01%"},
			{"abc", domain.ErrSlippageNotANumber, "Invalid slippage value"},
			{"", domain.ErrSlippageNotANumber, "Invalid slippage value"},
			{"-1", domain.ErrSlippageNegative, "Slippage must not be negative"},
		}

		for _, tt := range tests {
			tt := tt
			t.Run(tt.slippage, func(t *testing.T) {
				svc, notifier, host := newTestSettingsService(t)

				err := svc.SaveSettings(ctx, arbitrum, application.SettingsForm{
					SlippagePercent: tt.slippage,
					IsPnlInLeverage: true,
				})
				require.ErrorIs(t, err, tt.expectedErr)
				require.ErrorIs(t, err, domain.ErrInvalidSettingsInput)

				notifications := notifier.all()
				require.Len(t, notifications, 1)
				require.Equal(t, domain.NotificationError, notifications[0].Kind)
				require.Equal(t, tt.expectedContent, notifications[0].Content)
				host.AssertNotCalled(t, "CloseSettingsModal")

				settings, err := svc.GetSettings(ctx, arbitrum)
				require.NoError(t, err)
				require.Equal(t, int64(domain.DefaultSlippageBps), settings.SlippageBps)
				require.False(t, settings.IsPnlInLeverage)
			})
		}
	})
}

func TestOpenSettings(t *testing.T) {
	svc, _, host := newTestSettingsService(t)

	require.NoError(t, svc.SaveSettings(ctx, arbitrum, application.SettingsForm{
		SlippagePercent: "1.25",
	}))

	form, err := svc.OpenSettings(ctx, arbitrum)
	require.NoError(t, err)
	require.Equal(t, "1.25", form.SlippagePercent)
	require.False(t, form.IsPnlInLeverage)
	host.AssertCalled(t, "OpenSettingsModal")

	form, err = svc.OpenSettings(ctx, avalanche)
	require.NoError(t, err)
	require.Equal(t, "0.3", form.SlippagePercent)
}

func TestToggleSettings(t *testing.T) {
	svc, notifier, host := newTestSettingsService(t)

	require.NoError(t, svc.SetPnlInLeverage(ctx, arbitrum, true))
	require.NoError(t, svc.SetShowPositionLines(ctx, arbitrum, true))
	require.NoError(t, svc.SetShowPositionLines(ctx, avalanche, false))

	settings, err := svc.GetSettings(ctx, arbitrum)
	require.NoError(t, err)
	require.True(t, settings.IsPnlInLeverage)
	require.True(t, settings.ShouldShowPositionLines)
	require.Equal(t, int64(domain.DefaultSlippageBps), settings.SlippageBps)

	settings, err = svc.GetSettings(ctx, avalanche)
	require.NoError(t, err)
	require.False(t, settings.IsPnlInLeverage)
	require.False(t, settings.ShouldShowPositionLines)

	require.Empty(t, notifier.all())
	host.AssertNotCalled(t, "OpenSettingsModal")
	host.AssertNotCalled(t, "CloseSettingsModal")
}
