package backtest

import (
	"time"

	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// Position is a single open or closed position in the portfolio.
type Position struct {
	Symbol     string
	Side       types.Side
	EntryPrice float64
	Quantity   int64
	EntryTime  time.Time

	open        bool
	exitPrice   float64
	exitTime    time.Time
	realizedPnL float64
}

// NewPosition creates an open position. Quantity and entry price must be
// positive.
func NewPosition(symbol string, side types.Side, entryPrice float64, quantity int64, entryTime time.Time) (*Position, error) {
	if quantity <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidQuantity, "quantity must be positive, got %d", quantity)
	}

	if entryPrice <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPrice, "entry price must be positive, got %f", entryPrice)
	}

	return &Position{
		Symbol:     symbol,
		Side:       side,
		EntryPrice: entryPrice,
		Quantity:   quantity,
		EntryTime:  entryTime,
		open:       true,
	}, nil
}

// IsOpen reports whether the position is still open.
func (p *Position) IsOpen() bool {
	return p.open
}

// Notional returns the entry notional value of the position.
func (p *Position) Notional() float64 {
	return p.EntryPrice * float64(p.Quantity)
}

// UnrealizedPnL computes the pnl at the given price before commission.
func (p *Position) UnrealizedPnL(price float64) float64 {
	return types.GrossPnL(p.Side, p.EntryPrice, price, p.Quantity)
}

// Close marks the position closed and records the realized pnl before
// commission. Closing twice is an error.
func (p *Position) Close(exitPrice float64, exitTime time.Time) error {
	if !p.open {
		return errors.Newf(errors.ErrCodePositionAlreadyClosed, "position %s already closed", p.Symbol)
	}

	p.open = false
	p.exitPrice = exitPrice
	p.exitTime = exitTime
	p.realizedPnL = p.UnrealizedPnL(exitPrice)

	return nil
}

// RealizedPnL returns the pnl recorded at close, before commission.
func (p *Position) RealizedPnL() float64 {
	return p.realizedPnL
}

// ExitPrice returns the price recorded at close.
func (p *Position) ExitPrice() float64 {
	return p.exitPrice
}

// ExitTime returns the time recorded at close.
func (p *Position) ExitTime() time.Time {
	return p.exitTime
}

// Duration returns the holding time of a closed position.
func (p *Position) Duration() time.Duration {
	if p.open {
		return 0
	}

	return p.exitTime.Sub(p.EntryTime)
}
