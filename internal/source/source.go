// Package source implements the tick source adapter: file-mode pull
// iteration and live-mode push forwarding, per the external interfaces
// section of the spec. FileSource is grounded on plain encoding/json
// line-scanning; LiveSource is grounded directly on the teacher's
// feeds/polymarket_ws.go connect/ping/read loop, retargeted at the
// Rugs.fun tick wire format.
package source

import (
	"context"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

// Source is the file-mode pull interface: NextTick returns (nil, false, nil)
// at EOF, and a non-nil error only for unrecoverable read failures.
type Source interface {
	NextTick(ctx context.Context) (*model.GameTick, bool, error)
	Close() error
}
