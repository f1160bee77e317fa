package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUserRejected is returned when the user declines an activation request.
	ErrUserRejected = errors.New("user rejected the request")
	// ErrProviderAbsent is returned when no injected wallet is available.
	ErrProviderAbsent = errors.New("no injected wallet provider found")
	// ErrActivationTimeout is returned when a connector does not resolve in time.
	ErrActivationTimeout = errors.New("wallet activation timed out")
	// ErrActivationInProgress is returned when the same connector is already
	// being activated.
	ErrActivationInProgress = errors.New("wallet activation already in progress")
	// ErrUnsupportedConnector ...
	ErrUnsupportedConnector = errors.New("connector not supported")
	// ErrMissingAccount is returned when a connector resolves with no account.
	ErrMissingAccount = errors.New("connector resolved without any account")
	// ErrInvalidTransition is returned for connection state changes not
	// allowed by the state machine.
	ErrInvalidTransition = errors.New("invalid connection state transition")

	// ErrInvalidSettingsInput is the parent of every settings validation error.
	ErrInvalidSettingsInput = errors.New("invalid settings input")
	// ErrSlippageNotANumber ...
	ErrSlippageNotANumber = fmt.Errorf("%w: invalid slippage value", ErrInvalidSettingsInput)
	// ErrSlippageNegative ...
	ErrSlippageNegative = fmt.Errorf("%w: slippage must not be negative", ErrInvalidSettingsInput)
	// ErrSlippageTooHigh ...
	ErrSlippageTooHigh = fmt.Errorf(
		"%w: slippage should be less than %d%%", ErrInvalidSettingsInput, MaxSlippagePercent,
	)
	// ErrSlippagePrecision ...
	ErrSlippagePrecision = fmt.Errorf("%w: max slippage precision is 0.01%%", ErrInvalidSettingsInput)

	// ErrRelaySessionNotFound ...
	ErrRelaySessionNotFound = errors.New("relay session not found")
)
