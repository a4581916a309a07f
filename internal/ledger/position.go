package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// OpenOrAdd creates a position or adds to the existing one with
// weighted-average entry: new_entry = (old_amount*old_entry +
// add_amount*price) / (old_amount+add_amount). Debits the balance by
// add_amount.
func (l *Ledger) OpenOrAdd(amount, price decimal.Decimal, tick int64) error {
	if err := l.lock(); err != nil {
		return err
	}
	defer l.unlock()

	oldBalance := l.state.Wallet.BalanceSOL
	newBalance := oldBalance.Sub(amount)

	if l.state.Position == nil || l.state.Position.Status == model.PositionClosed {
		l.state.Position = &model.Position{
			AmountSOL:  amount,
			EntryPrice: price,
			EntryTick:  tick,
			Status:     model.PositionActive,
		}
		l.state.Wallet.BalanceSOL = newBalance
		l.publish(bus.PositionOpened, PositionEventPayload{Position: *l.state.Position})
	} else {
		pos := l.state.Position
		totalAmount := pos.AmountSOL.Add(amount)
		weighted := pos.AmountSOL.Mul(pos.EntryPrice).Add(amount.Mul(price))
		pos.EntryPrice = weighted.Div(totalAmount)
		pos.AmountSOL = totalAmount
		l.state.Wallet.BalanceSOL = newBalance
		l.publish(bus.PositionOpened, PositionEventPayload{Position: *pos})
	}

	l.updateOpenPositionGauge()
	l.publishBalanceChanged(oldBalance, newBalance)
	l.publishStateChanged()
	return nil
}

// ClosePosition computes realized_pnl = amount*(price/entry - 1), credits
// balance += amount + realized_pnl (clamped at 0), moves the position to
// closed history, and emits events. On rug, price is forced to the
// configured liquidation price by the caller (trade manager) before this
// is invoked — ClosePosition itself just uses whatever price it's given.
func (l *Ledger) ClosePosition(tick int64, price decimal.Decimal, reason model.CloseReason) error {
	if err := l.lock(); err != nil {
		return err
	}
	defer l.unlock()

	if l.state.Position == nil || l.state.Position.Status != model.PositionActive {
		return ErrNoActivePosition
	}

	pos := l.state.Position
	ratio := price.Div(pos.EntryPrice).Sub(decimal.NewFromInt(1))
	pnl := pos.AmountSOL.Mul(ratio)

	pos.ExitTick = tick
	pos.ExitPrice = price
	pos.RealizedPnLSOL = pnl
	pos.Status = model.PositionClosed
	pos.CloseReason = reason

	oldBalance := l.state.Wallet.BalanceSOL
	credit := pos.AmountSOL.Add(pnl)
	newBalance := oldBalance.Add(credit)
	if newBalance.IsNegative() {
		newBalance = decimal.Zero
	}
	l.state.Wallet.BalanceSOL = newBalance
	l.state.Wallet.SessionPnLSOL = l.state.Wallet.SessionPnLSOL.Add(pnl)

	closed := *pos
	l.state.ClosedPositions = append(l.state.ClosedPositions, closed)
	l.state.Position = nil

	l.publish(bus.PositionClosed, PositionEventPayload{Position: closed, Reason: reason})
	l.updateOpenPositionGauge()
	l.publishBalanceChanged(oldBalance, newBalance)
	l.publishStateChanged()
	return nil
}

// RugLiquidationPrice returns the configured fixed liquidation price used
// on rug (0.02 SOL by default) — exported so the trade manager's OnTick
// doesn't need to duplicate the config value.
func (l *Ledger) RugLiquidationPrice() decimal.Decimal {
	return l.cfg.RugLiquidationPrice
}
