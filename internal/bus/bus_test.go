package bus

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeDrops struct {
	drops map[Kind]int
}

func (f *fakeDrops) IncBusDrop(kind Kind) {
	if f.drops == nil {
		f.drops = make(map[Kind]int)
	}
	f.drops[kind]++
}

func TestPublishSubscribe_Basic(t *testing.T) {
	b := New(nil)
	_, ch := b.Subscribe(GameTick)

	b.Publish(GameTick, "payload")

	select {
	case ev := <-ch:
		require.Equal(t, GameTick, ev.Kind)
		require.Equal(t, "payload", ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublish_OnlyMatchingKindDelivered(t *testing.T) {
	b := New(nil)
	_, tickCh := b.Subscribe(GameTick)
	_, endCh := b.Subscribe(GameEnd)

	b.Publish(GameEnd, "done")

	select {
	case ev := <-endCh:
		require.Equal(t, "done", ev.Payload)
	case <-time.After(time.Second):
		t.Fatal("expected GAME_END delivery")
	}

	select {
	case <-tickCh:
		t.Fatal("unexpected delivery on unrelated subscription")
	default:
	}
}

func TestUnsubscribe_StopsDeliveryAndClosesChannel(t *testing.T) {
	b := New(nil)
	id, ch := b.Subscribe(GameTick)
	b.Unsubscribe(id)

	b.Publish(GameTick, "ignored")

	_, ok := <-ch
	require.False(t, ok, "channel should be closed after unsubscribe")
}

func TestDeliver_DropsOldestWhenSubscriberFull(t *testing.T) {
	drops := &fakeDrops{}
	b := New(drops)
	_, ch := b.SubscribeBuffered(GameTick, 1)

	b.Publish(GameTick, 1)
	b.Publish(GameTick, 2) // buffer full, should drop the oldest (1) and keep 2

	ev := <-ch
	require.Equal(t, 2, ev.Payload)
	require.Equal(t, 1, drops.drops[GameTick])
}

func TestStop_ClosesAllSubscriberChannels(t *testing.T) {
	b := New(nil)
	_, ch1 := b.Subscribe(GameTick)
	_, ch2 := b.Subscribe(GameEnd)

	b.Stop(context.Background())

	_, ok1 := <-ch1
	_, ok2 := <-ch2
	require.False(t, ok1)
	require.False(t, ok2)
}
