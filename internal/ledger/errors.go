package ledger

import (
	"errors"
	"fmt"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

var (
	ErrLockTimeout      = fmt.Errorf("%w: lock acquisition timed out", model.ErrLedger)
	ErrNoActivePosition = fmt.Errorf("%w: no active position", model.ErrLedger)
	ErrPositionActive   = fmt.Errorf("%w: position already active", model.ErrLedger)
	ErrSidebetActive    = fmt.Errorf("%w: sidebet already active", model.ErrLedger)
	ErrNoActiveSidebet  = fmt.Errorf("%w: no active sidebet", model.ErrLedger)
)

// IsLockTimeout is a convenience errors.Is wrapper for callers.
func IsLockTimeout(err error) bool {
	return errors.Is(err, ErrLockTimeout)
}
