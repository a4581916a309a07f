package source

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dutchthenomad/rugsreplay/internal/model"
)

const (
	defaultPingInterval = 30 * time.Second
)

// Counters is the narrow telemetry surface sources push to.
type Counters interface {
	IncMalformedTick()
}

// PushFunc is invoked once per parsed live tick. The replay engine passes
// its own PushTick as this callback.
type PushFunc func(model.GameTick)

// LiveSource wraps a websocket connection to the live event feed,
// reconnecting on drop with a rate-limited backoff. Structurally this is
// the teacher's feeds/polymarket_ws.go connectionLoop/connect/pingLoop/
// readLoop, retargeted at the Rugs.fun tick wire format and pushed
// straight into the replay engine instead of fanning out to a local
// subscriber list (the event bus plays that role downstream instead).
type LiveSource struct {
	mu        sync.RWMutex
	url       string
	conn      *websocket.Conn
	connected bool
	stopCh    chan struct{}
	limiter   *rate.Limiter
	counters  Counters
}

func NewLiveSource(url string, counters Counters) *LiveSource {
	return &LiveSource{
		url:      url,
		stopCh:   make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Every(5*time.Second), 1),
		counters: counters,
	}
}

// Run connects and blocks, pushing parsed ticks to push, until ctx is
// canceled or Close is called. It reconnects on read errors, throttled by
// the rate limiter so a flapping connection can't spin hot.
func (s *LiveSource) Run(ctx context.Context, push PushFunc) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		default:
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			log.Error().Err(err).Msg("source: live connection failed, retrying")
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.connected = true
		s.mu.Unlock()

		log.Info().Str("url", s.url).Msg("source: live feed connected")

		pingCtx, cancelPing := context.WithCancel(ctx)
		go s.pingLoop(pingCtx, conn)

		s.readLoop(ctx, conn, push)
		cancelPing()

		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
	}
}

func (s *LiveSource) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(defaultPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *LiveSource) readLoop(ctx context.Context, conn *websocket.Conn, push PushFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := conn.ReadMessage()
		if err != nil {
			log.Warn().Err(err).Msg("source: live read error, reconnecting")
			conn.Close()
			return
		}

		s.processMessage(message, push)
	}
}

// processMessage decodes one or more wire lines from a single websocket
// frame — a live feed may batch several tick events per frame.
func (s *LiveSource) processMessage(data []byte, push PushFunc) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Msg("source: unparsable live frame")
		return
	}

	lines := splitFrame(raw)
	for _, line := range lines {
		kind, tick, _, _, err := parseLine(line)
		if err != nil {
			log.Warn().Err(err).Msg("source: malformed live tick, skipping")
			if s.counters != nil {
				s.counters.IncMalformedTick()
			}
			continue
		}
		if kind == "tick" && tick != nil {
			push(*tick)
		}
	}
}

// splitFrame accepts either a single JSON object or a JSON array of
// objects in one frame and returns each object's raw bytes.
func splitFrame(raw json.RawMessage) [][]byte {
	trimmed := trimSpace(raw)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		var arr []json.RawMessage
		if err := json.Unmarshal(trimmed, &arr); err != nil {
			return nil
		}
		out := make([][]byte, 0, len(arr))
		for _, m := range arr {
			out = append(out, []byte(m))
		}
		return out
	}
	return [][]byte{trimmed}
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// Close stops the read loop and closes the underlying connection. Safe
// to call more than once.
func (s *LiveSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// NextTick is not used in live mode — LiveSource pushes via Run instead
// of being pulled. It satisfies the Source interface's shape for callers
// that type-switch, but always returns immediately with no tick.
func (s *LiveSource) NextTick(ctx context.Context) (*model.GameTick, bool, error) {
	return nil, false, nil
}
