package broadcast

import (
	"testing"

	"github.com/san-kum/choreo/internal/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_SubscribeAndFlush(t *testing.T) {
	b := NewBus()
	var got []float64
	require.NoError(t, b.Subscribe("renderer", func(p Payload) {
		got = append(got, p.State[signal.Intensity])
	}))

	require.NoError(t, b.Publish(payloadWith(0.1)))
	require.NoError(t, b.Publish(payloadWith(0.2)))
	assert.Empty(t, got, "publish only enqueues")

	assert.Equal(t, 2, b.Flush())
	assert.Equal(t, []float64{0.1, 0.2}, got)
	assert.Equal(t, 0, b.Flush())

	st, err := b.Stats("renderer")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), st.Sent)
}

func TestBus_ChannelDropsWhenFull(t *testing.T) {
	b := NewBus()
	ch := make(chan Payload, 1)
	require.NoError(t, b.SubscribeChan("slow", ch))

	for i := 0; i < 3; i++ {
		require.NoError(t, b.Publish(payloadWith(float64(i))))
	}
	b.Flush()

	st, err := b.Stats("slow")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), st.Sent)
	assert.Equal(t, uint64(2), st.Dropped)
	assert.Equal(t, 0.0, (<-ch).State[signal.Intensity])

	snap := b.Snapshot()
	assert.Equal(t, uint64(3), snap.TotalPublished)
	assert.Equal(t, uint64(2), snap.TotalDropped)
}

func TestBus_Errors(t *testing.T) {
	b := NewBus()
	assert.ErrorIs(t, b.SubscribeChan("x", nil), ErrNilChannel)
	assert.ErrorIs(t, b.Subscribe("x", nil), ErrNilHandler)

	require.NoError(t, b.Subscribe("x", func(Payload) {}))
	assert.ErrorIs(t, b.Subscribe("x", func(Payload) {}), ErrSubscriberExists)
	assert.ErrorIs(t, b.Unsubscribe("y"), ErrSubscriberNotFound)
	_, err := b.Stats("y")
	assert.ErrorIs(t, err, ErrSubscriberNotFound)

	require.NoError(t, b.Unsubscribe("x"))
	assert.Equal(t, 0, b.Len())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(payloadWith(0)), ErrBusClosed)
	assert.ErrorIs(t, b.Subscribe("z", func(Payload) {}), ErrBusClosed)
	assert.ErrorIs(t, b.Unsubscribe("z"), ErrBusClosed)
}

func TestBus_DeliversCopies(t *testing.T) {
	b := NewBus()
	var seen []Payload
	require.NoError(t, b.Subscribe("a", func(p Payload) {
		p.State[signal.Intensity] = 42
		seen = append(seen, p)
	}))
	require.NoError(t, b.Subscribe("b", func(p Payload) { seen = append(seen, p) }))

	require.NoError(t, b.Publish(payloadWith(0.3)))
	b.Flush()
	require.Len(t, seen, 2)
	assert.Equal(t, 0.3, seen[1].State[signal.Intensity])
}

func TestBus_UnsubscribeInsideHandler(t *testing.T) {
	b := NewBus()
	calls := 0
	require.NoError(t, b.Subscribe("once", func(Payload) {
		calls++
		_ = b.Unsubscribe("once")
	}))
	require.NoError(t, b.Publish(payloadWith(0)))
	require.NoError(t, b.Publish(payloadWith(0)))
	b.Flush()
	assert.Equal(t, 1, calls)
}
