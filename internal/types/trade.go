package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ExitReason records why a position was closed.
type ExitReason string

const (
	ExitReasonProfitTarget ExitReason = "profit_target"
	ExitReasonStopLoss     ExitReason = "stop_loss"
	ExitReasonForceExit    ExitReason = "force_exit"
	ExitReasonDayEnd       ExitReason = "day_end"
)

// TradeRecord is a completed round trip: entry plus exit.
type TradeRecord struct {
	Symbol     string     `csv:"symbol"`
	Side       Side       `csv:"side"`
	EntryTime  time.Time  `csv:"entry_time"`
	ExitTime   time.Time  `csv:"exit_time"`
	EntryPrice float64    `csv:"entry_price"`
	ExitPrice  float64    `csv:"exit_price"`
	Quantity   int64      `csv:"quantity"`
	Commission float64    `csv:"commission"`
	PnL        float64    `csv:"pnl"`
	Return     float64    `csv:"return"`
	Reason     ExitReason `csv:"reason"`
}

// EquityPoint is the portfolio value at the end of one trading day.
type EquityPoint struct {
	Date      time.Time `csv:"date"`
	Equity    float64   `csv:"equity"`
	Cash      float64   `csv:"cash"`
	OpenCount int       `csv:"open_positions"`
}

// GrossPnL computes the pnl of a round trip before commission.
// Short trades profit when the exit price is below the entry price.
func GrossPnL(side Side, entryPrice, exitPrice float64, quantity int64) float64 {
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	qty := decimal.NewFromInt(quantity)

	var diff decimal.Decimal
	if side == SideLong {
		diff = exit.Sub(entry)
	} else {
		diff = entry.Sub(exit)
	}

	pnl, _ := diff.Mul(qty).Float64()

	return pnl
}
