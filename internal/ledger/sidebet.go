package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugsreplay/internal/bus"
	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// PlaceSidebet debits the wager and opens an active sidebet expiring
// SidebetWindowTicks after the placement tick.
func (l *Ledger) PlaceSidebet(amount, price decimal.Decimal, tick int64) error {
	if err := l.lock(); err != nil {
		return err
	}
	defer l.unlock()

	if l.state.Sidebet != nil && l.state.Sidebet.Status == model.SidebetActiveStatus {
		return ErrSidebetActive
	}

	sb := &model.Sidebet{
		AmountSOL:     amount,
		PlacedTick:    tick,
		PlacedPrice:   price,
		ExpiresAtTick: tick + l.cfg.SidebetWindowTicks,
		Status:        model.SidebetActiveStatus,
	}
	l.state.Sidebet = sb

	oldBalance := l.state.Wallet.BalanceSOL
	newBalance := oldBalance.Sub(amount)
	l.state.Wallet.BalanceSOL = newBalance

	l.publish(bus.SidebetPlaced, SidebetEventPayload{Sidebet: *sb})
	l.publishBalanceChanged(oldBalance, newBalance)
	l.publishStateChanged()
	return nil
}

// ResolveSidebet settles the active sidebet won or lost. A win credits
// SidebetMultiplier*amount total back to the wallet (stake + net profit);
// a loss credits nothing. SidebetPnL records the net contribution to
// session P&L: (multiplier-1)*amount on win, -amount on loss.
func (l *Ledger) ResolveSidebet(tick int64, outcome model.SidebetStatus) error {
	if err := l.lock(); err != nil {
		return err
	}
	defer l.unlock()

	if l.state.Sidebet == nil || l.state.Sidebet.Status != model.SidebetActiveStatus {
		return ErrNoActiveSidebet
	}

	sb := l.state.Sidebet
	sb.Status = outcome
	l.state.LastSidebetResolvedTick = tick

	oldBalance := l.state.Wallet.BalanceSOL
	newBalance := oldBalance
	if outcome == model.SidebetWon {
		payout := l.cfg.SidebetMultiplier.Mul(sb.AmountSOL)
		newBalance = oldBalance.Add(payout)
		sb.SidebetPnL = l.cfg.SidebetMultiplier.Sub(decimal.NewFromInt(1)).Mul(sb.AmountSOL)
	} else {
		sb.SidebetPnL = sb.AmountSOL.Neg()
	}
	l.state.Wallet.BalanceSOL = newBalance
	l.state.Wallet.SessionPnLSOL = l.state.Wallet.SessionPnLSOL.Add(sb.SidebetPnL)

	closed := *sb
	l.state.ClosedSidebets = append(l.state.ClosedSidebets, closed)
	l.state.Sidebet = nil

	l.publish(bus.SidebetResolved, SidebetEventPayload{Sidebet: closed, Outcome: outcome})
	if outcome == model.SidebetWon {
		l.publishBalanceChanged(oldBalance, newBalance)
	}
	l.publishStateChanged()
	return nil
}

// SidebetCooldownTicks exposes the configured cooldown for the trade
// manager's placement validation.
func (l *Ledger) SidebetCooldownTicks() int64 {
	return l.cfg.SidebetCooldownTicks
}
