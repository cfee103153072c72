package backtest

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openrange-trading/openrange/internal/types"
	"github.com/openrange-trading/openrange/pkg/errors"
)

// Portfolio tracks cash and open positions during a backtest run. Entering a
// position reserves its full notional from cash; closing returns the notional
// plus pnl net of commission.
type Portfolio struct {
	initialCapital float64
	commissionRate float64
	cash           float64
	open           []*Position
	closed         []*Position
}

// NewPortfolio creates a portfolio with the given starting cash and one-way
// commission rate.
func NewPortfolio(initialCapital, commissionRate float64) *Portfolio {
	return &Portfolio{
		initialCapital: initialCapital,
		commissionRate: commissionRate,
		cash:           initialCapital,
	}
}

// Cash returns the free cash balance.
func (p *Portfolio) Cash() float64 {
	return p.cash
}

// OpenCount returns the number of open positions.
func (p *Portfolio) OpenCount() int {
	return len(p.open)
}

// OpenPositions returns the open positions. The slice must not be mutated.
func (p *Portfolio) OpenPositions() []*Position {
	return p.open
}

// HasOpen reports whether a position is open for the symbol.
func (p *Portfolio) HasOpen(symbol string) bool {
	for _, pos := range p.open {
		if pos.Symbol == symbol {
			return true
		}
	}

	return false
}

// PositionSize computes the whole-share quantity for an equal-split entry:
// free cash divided across numPositions concurrent positions.
func (p *Portfolio) PositionSize(price float64, numPositions int) int64 {
	if price <= 0 || numPositions <= 0 {
		return 0
	}

	perPosition := p.cash / float64(numPositions)

	return int64(perPosition / price)
}

// AddPosition reserves the position's notional from cash and tracks it as
// open.
func (p *Portfolio) AddPosition(pos *Position) error {
	required := pos.Notional()
	if required > p.cash {
		return errors.Newf(errors.ErrCodeInsufficientCash,
			"insufficient cash: need %.0f, have %.0f", required, p.cash)
	}

	p.cash -= required
	p.open = append(p.open, pos)

	return nil
}

// ClosePosition closes an open position and returns the completed trade
// record. Commission is charged on both legs of the round trip and deducted
// from the pnl.
func (p *Portfolio) ClosePosition(pos *Position, exitPrice float64, exitTime time.Time, reason types.ExitReason) (types.TradeRecord, error) {
	if err := pos.Close(exitPrice, exitTime); err != nil {
		return types.TradeRecord{}, err
	}

	commission := p.roundTripCommission(pos.EntryPrice, exitPrice, pos.Quantity)
	netPnL := pos.RealizedPnL() - commission

	p.cash += pos.Notional() + netPnL

	for i, open := range p.open {
		if open == pos {
			p.open = append(p.open[:i], p.open[i+1:]...)

			break
		}
	}

	p.closed = append(p.closed, pos)

	var returnPct float64
	if notional := pos.Notional(); notional > 0 {
		returnPct = netPnL / notional
	}

	return types.TradeRecord{
		Symbol:     pos.Symbol,
		Side:       pos.Side,
		EntryTime:  pos.EntryTime,
		ExitTime:   exitTime,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  exitPrice,
		Quantity:   pos.Quantity,
		Commission: commission,
		PnL:        netPnL,
		Return:     returnPct,
		Reason:     reason,
	}, nil
}

// RealizedPnL returns the summed pnl of all closed positions before
// commission.
func (p *Portfolio) RealizedPnL() float64 {
	var total float64

	for _, pos := range p.closed {
		total += pos.RealizedPnL()
	}

	return total
}

func (p *Portfolio) roundTripCommission(entryPrice, exitPrice float64, quantity int64) float64 {
	qty := decimal.NewFromInt(quantity)
	rate := decimal.NewFromFloat(p.commissionRate)

	entryNotional := decimal.NewFromFloat(entryPrice).Mul(qty)
	exitNotional := decimal.NewFromFloat(exitPrice).Mul(qty)

	commission, _ := entryNotional.Add(exitNotional).Mul(rate).Float64()

	return commission
}
