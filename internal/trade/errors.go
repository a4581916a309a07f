package trade

import (
	"errors"
	"fmt"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

var (
	ErrWrongPhase                = fmt.Errorf("%w: wrong phase for this command", model.ErrValidation)
	ErrAmountOutOfRange          = fmt.Errorf("%w: amount out of range", model.ErrValidation)
	ErrInsufficientBalance       = fmt.Errorf("%w: insufficient balance", model.ErrValidation)
	ErrNoActivePosition          = fmt.Errorf("%w: no active position", model.ErrValidation)
	ErrSidebetActive             = fmt.Errorf("%w: sidebet already active", model.ErrValidation)
	ErrSidebetCooldown           = fmt.Errorf("%w: sidebet cooldown still in effect", model.ErrValidation)
	ErrLedgerLockTimeout         = fmt.Errorf("%w: ledger lock timed out", model.ErrLedger)
	ErrPartialCloseUnsupported   = fmt.Errorf("%w: partial close is not supported in the core", model.ErrValidation)
)

func IsValidation(err error) bool {
	return errors.Is(err, model.ErrValidation)
}
