package ledger

import "github.com/dutchthenomad/rugsreplay/internal/model"

// Reset rebuilds initial ledger state for a new game. When keepBalance is
// true (live mode) the wallet carries across games along with
// last-sidebet-resolved-tick bookkeeping; in file mode each loaded file
// starts a fresh wallet.
func (l *Ledger) Reset(keepBalance bool) error {
	if err := l.lock(); err != nil {
		return err
	}
	defer l.unlock()

	wallet := model.NewWallet(l.cfg.InitialBalanceSOL)
	lastSidebetResolved := int64(0)
	if keepBalance {
		wallet = l.state.Wallet
		lastSidebetResolved = l.state.LastSidebetResolvedTick
	}

	l.state = State{
		CurrentPhase:            model.PhaseUnknown,
		Wallet:                  wallet,
		LastSidebetResolvedTick: lastSidebetResolved,
	}

	l.updateOpenPositionGauge()
	l.publishStateChanged()
	return nil
}
