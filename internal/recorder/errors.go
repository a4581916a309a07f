package recorder

import (
	"fmt"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

var (
	ErrOversizedTick        = fmt.Errorf("%w: tick exceeds max_tick_bytes", model.ErrRecorder)
	ErrInsufficientDiskSpace = fmt.Errorf("%w: free disk space below minimum", model.ErrRecorder)
	ErrNotRecording         = fmt.Errorf("%w: recorder is stopped", model.ErrRecorder)
	ErrAlreadyRecording     = fmt.Errorf("%w: a game is already being recorded", model.ErrLifecycle)
)
