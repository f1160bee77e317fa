package domain

const (
	// BasisPointsDivisor is the number of basis points in 100%.
	BasisPointsDivisor = 10000
	// DefaultSlippageBps is the slippage used for chains without stored settings.
	DefaultSlippageBps = 30
	// MaxSlippagePercent is the exclusive upper bound for the slippage tolerance.
	MaxSlippagePercent = 5

	SlippageBpsKey             = "slippage-bps"
	IsPnlInLeverageKey         = "is-pnl-in-leverage"
	ShouldShowPositionLinesKey = "should-show-position-lines"

	ReceiptStatusFailed     = 0
	ReceiptStatusSuccessful = 1
)
