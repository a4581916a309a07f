package replay

import (
	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugsreplay/internal/trade"
)

// Buy, Sell, and Sidebet forward to the trade manager after checking the
// engine hasn't halted on an invariant violation — a halted engine
// refuses every command until a fresh Stop/restart.
func (e *Engine) Buy(amount decimal.Decimal) (trade.Receipt, error) {
	if err := e.refusedIfHalted(); err != nil {
		return trade.Receipt{}, err
	}
	return e.trader.Buy(amount)
}

func (e *Engine) Sell(fraction float64) (trade.Receipt, error) {
	if err := e.refusedIfHalted(); err != nil {
		return trade.Receipt{}, err
	}
	return e.trader.Sell(fraction)
}

func (e *Engine) Sidebet(amount decimal.Decimal) (trade.Receipt, error) {
	if err := e.refusedIfHalted(); err != nil {
		return trade.Receipt{}, err
	}
	return e.trader.Sidebet(amount)
}
