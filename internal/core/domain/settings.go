package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	maxSlippagePercent = decimal.NewFromInt(MaxSlippagePercent)
)

// Settings are the user adjustable trading parameters of one chain.
type Settings struct {
	ChainID                 uint64
	SlippageBps             int64
	IsPnlInLeverage         bool
	ShouldShowPositionLines bool
}

// NewDefaultSettings returns the settings of a chain never configured.
func NewDefaultSettings(chainID uint64) *Settings {
	return &Settings{
		ChainID:     chainID,
		SlippageBps: DefaultSlippageBps,
	}
}

// SlippagePercent returns the slippage as a percentage with at most 2
// decimals, ie. 30 bps -> "0.3".
func (s Settings) SlippagePercent() string {
	return BpsToPercent(s.SlippageBps)
}

// BpsToPercent ...
func BpsToPercent(bps int64) string {
	return decimal.New(bps, -2).String()
}

// ParseSlippagePercent validates a slippage percentage typed by the user and
// returns the equivalent amount of basis points.
func ParseSlippagePercent(str string) (int64, error) {
	str = strings.TrimSpace(str)
	if str == "" {
		return 0, ErrSlippageNotANumber
	}

	pct, err := decimal.NewFromString(str)
	if err != nil {
		return 0, ErrSlippageNotANumber
	}
	return percentToBps(pct)
}

// SlippageFromFloat is the numeric counterpart of ParseSlippagePercent.
func SlippageFromFloat(pct float64) (int64, error) {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return 0, ErrSlippageNotANumber
	}
	return percentToBps(decimal.NewFromFloat(pct))
}

func percentToBps(pct decimal.Decimal) (int64, error) {
	if pct.IsNegative() {
		return 0, ErrSlippageNegative
	}
	if pct.GreaterThanOrEqual(maxSlippagePercent) {
		return 0, ErrSlippageTooHigh
	}

	// 1% = 100 bps
	bps := pct.Shift(2)
	if !bps.IsInteger() {
		return 0, ErrSlippagePrecision
	}
	return bps.IntPart(), nil
}
