package ledger

import "github.com/dutchthenomad/rugsreplay/internal/model"

// CheckInvariants re-verifies the universal invariants from the testable
// properties list. The ledger's own structure already makes "at most one
// active position/sidebet" true by construction (Position/Sidebet are
// single pointers, not slices) — this call exists for the caller
// (replay.Engine) to detect a balance invariant breach after a tick and
// escalate to an ERROR event plus playback halt, per the error-handling
// design's "invariant breach (bug)" rule.
func (l *Ledger) CheckInvariants() error {
	snap := l.Snapshot()
	if snap.Wallet.BalanceSOL.IsNegative() {
		return model.ErrInvariantViolation
	}
	return nil
}
