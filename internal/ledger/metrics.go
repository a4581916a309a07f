package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// Metrics computes win_rate/avg_win/avg_loss/roi/max_drawdown from closed
// positions only — sidebets never contribute, by design, so a lucky
// sidebet streak can't mask a losing trading strategy.
func (l *Ledger) Metrics() Metrics {
	if err := l.lock(); err != nil {
		return Metrics{}
	}
	defer l.unlock()

	return computeMetrics(l.state.ClosedPositions, l.state.Wallet)
}

func computeMetrics(closed []model.Position, wallet model.Wallet) Metrics {
	if len(closed) == 0 {
		return Metrics{}
	}

	var wins, losses int
	var winSum, lossSum decimal.Decimal
	var equity, peak, maxDrawdown decimal.Decimal
	equity = wallet.StartingBalanceSOL
	peak = equity

	for _, p := range closed {
		if p.RealizedPnLSOL.IsPositive() {
			wins++
			winSum = winSum.Add(p.RealizedPnLSOL)
		} else if p.RealizedPnLSOL.IsNegative() {
			losses++
			lossSum = lossSum.Add(p.RealizedPnLSOL)
		}

		equity = equity.Add(p.RealizedPnLSOL)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		drawdown := peak.Sub(equity)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}

	m := Metrics{MaxDrawdown: maxDrawdown}

	total := decimal.NewFromInt(int64(len(closed)))
	m.WinRate = decimal.NewFromInt(int64(wins)).Div(total)

	if wins > 0 {
		m.AvgWin = winSum.Div(decimal.NewFromInt(int64(wins)))
	}
	if losses > 0 {
		m.AvgLoss = lossSum.Div(decimal.NewFromInt(int64(losses)))
	}
	if wallet.StartingBalanceSOL.IsPositive() {
		m.ROI = winSum.Add(lossSum).Div(wallet.StartingBalanceSOL)
	}

	return m
}
