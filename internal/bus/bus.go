// Package bus implements a typed publish/subscribe event bus with a
// bounded queue per subscriber and non-blocking publish, generalized from
// the teacher feed's broadcast-with-drop channel fan-out.
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Kind identifies an event category.
type Kind string

const (
	GameTick         Kind = "GAME_TICK"
	GameStart        Kind = "GAME_START"
	GameEnd          Kind = "GAME_END"
	RugDetected      Kind = "RUG_DETECTED"
	StateChanged     Kind = "STATE_CHANGED"
	PositionOpened   Kind = "POSITION_OPENED"
	PositionClosed   Kind = "POSITION_CLOSED"
	SidebetPlaced    Kind = "SIDEBET_PLACED"
	SidebetResolved  Kind = "SIDEBET_RESOLVED"
	BalanceChanged   Kind = "BALANCE_CHANGED"
	UIUpdate         Kind = "UI_UPDATE"
	Error            Kind = "ERROR"
)

// Event is a typed envelope delivered to subscribers.
type Event struct {
	Kind    Kind
	Payload any
}

// DropCounter is implemented by internal/telemetry; kept as a narrow
// interface here so bus has no hard dependency on the metrics package.
type DropCounter interface {
	IncBusDrop(kind Kind)
}

const defaultQueueSize = 256

type subscriber struct {
	id   uuid.UUID
	kind Kind
	ch   chan Event
	mu   sync.Mutex
}

// Bus is the single instance shared by the replay engine's producers and
// any number of external consumers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[uuid.UUID]*subscriber
	drops       DropCounter
}

func New(drops DropCounter) *Bus {
	return &Bus{
		subscribers: make(map[uuid.UUID]*subscriber),
		drops:       drops,
	}
}

// Subscribe registers a handler queue for a given event kind. The returned
// channel has a bounded buffer; a slow consumer loses its oldest pending
// event rather than blocking the publisher.
func (b *Bus) Subscribe(kind Kind) (uuid.UUID, <-chan Event) {
	return b.SubscribeBuffered(kind, defaultQueueSize)
}

func (b *Bus) SubscribeBuffered(kind Kind, bufSize int) (uuid.UUID, <-chan Event) {
	if bufSize <= 0 {
		bufSize = defaultQueueSize
	}
	sub := &subscriber{
		id:   uuid.New(),
		kind: kind,
		ch:   make(chan Event, bufSize),
	}

	b.mu.Lock()
	b.subscribers[sub.id] = sub
	b.mu.Unlock()

	return sub.id, sub.ch
}

// Unsubscribe removes a subscription; safe to call more than once.
func (b *Bus) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	sub, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
	}
	b.mu.Unlock()

	if ok {
		sub.mu.Lock()
		close(sub.ch)
		sub.mu.Unlock()
	}
}

// Publish is non-blocking and never propagates a handler's processing
// error back to the caller — there's nothing to propagate, handlers just
// receive off a channel. If a subscriber's queue is full, the oldest
// pending event for that subscriber is dropped to make room for this one.
func (b *Bus) Publish(kind Kind, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ev := Event{Kind: kind, Payload: payload}
	for _, sub := range b.subscribers {
		if sub.kind != kind {
			continue
		}
		b.deliver(sub, ev)
	}
}

func (b *Bus) deliver(sub *subscriber, ev Event) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	select {
	case sub.ch <- ev:
		return
	default:
	}

	// Queue full: drop the oldest, then try once more.
	select {
	case <-sub.ch:
		if b.drops != nil {
			b.drops.IncBusDrop(ev.Kind)
		}
	default:
	}

	select {
	case sub.ch <- ev:
	default:
		// Still full (concurrent publish raced us) — drop this event too.
		if b.drops != nil {
			b.drops.IncBusDrop(ev.Kind)
		}
	}
}

// Stop drains pending events for every subscriber up to the given
// deadline, then discards whatever is left and closes all queues. Safe to
// call when queues are full, and idempotent.
func (b *Bus) Stop(ctx context.Context) {
	b.mu.Lock()
	subs := make([]*subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.subscribers = make(map[uuid.UUID]*subscriber)
	b.mu.Unlock()

	deadline := 2 * time.Second
	if dl, ok := ctx.Deadline(); ok {
		deadline = time.Until(dl)
	}
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	for _, sub := range subs {
		b.drainOne(sub, timer.C)
	}
}

func (b *Bus) drainOne(sub *subscriber, deadline <-chan time.Time) {
	sub.mu.Lock()
	defer sub.mu.Unlock()

	for {
		select {
		case _, ok := <-sub.ch:
			if !ok {
				return
			}
		case <-deadline:
			log.Debug().Msg("bus: drain deadline exceeded, discarding remaining events")
			close(sub.ch)
			return
		default:
			close(sub.ch)
			return
		}
	}
}
