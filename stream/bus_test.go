package stream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/planloop/planloop/core"
)

func drain(sub *Subscription) []core.StreamEvent {
	var out []core.StreamEvent
	for {
		select {
		case event := <-sub.Events():
			out = append(out, event)
		default:
			return out
		}
	}
}

func TestBusEmit(t *testing.T) {
	t.Run("assigns monotonic sequence numbers from zero", func(t *testing.T) {
		bus := NewBus()
		first := bus.Emit(core.EventStart, nil)
		second := bus.Emit(core.EventProgress, nil)
		third := bus.Emit(core.EventComplete, nil)

		assert.Equal(t, uint64(0), first.Sequence)
		assert.Equal(t, uint64(1), second.Sequence)
		assert.Equal(t, uint64(2), third.Sequence)
	})

	t.Run("delivers to all subscribers in order", func(t *testing.T) {
		bus := NewBus()
		a := bus.Subscribe()
		b := bus.Subscribe()

		bus.Emit(core.EventStart, map[string]any{"goal": "x"})
		bus.Emit(core.EventComplete, nil)

		for _, sub := range []*Subscription{a, b} {
			events := drain(sub)
			require.Len(t, events, 2)
			assert.Equal(t, core.EventStart, events[0].Type)
			assert.Equal(t, core.EventComplete, events[1].Type)
			assert.Less(t, events[0].Sequence, events[1].Sequence)
		}
	})

	t.Run("stamps ids and timestamps", func(t *testing.T) {
		bus := NewBus()
		event := bus.Emit(core.EventThinking, nil)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.Timestamp.IsZero())
	})
}

func TestBusSlowSubscriberDropsOldest(t *testing.T) {
	bus := NewBus(func(o *BusOptions) { o.SubscriberBuffer = 2 })
	sub := bus.Subscribe()

	bus.Emit(core.EventStart, nil)    // seq 0, dropped
	bus.Emit(core.EventProgress, nil) // seq 1
	bus.Emit(core.EventComplete, nil) // seq 2

	events := drain(sub)
	require.Len(t, events, 2)
	assert.Equal(t, uint64(1), events[0].Sequence)
	assert.Equal(t, uint64(2), events[1].Sequence)
}

func TestBusHistoryReplay(t *testing.T) {
	t.Run("late subscriber receives history", func(t *testing.T) {
		bus := NewBus()
		bus.Emit(core.EventStart, nil)
		bus.Emit(core.EventProgress, nil)

		sub := bus.Subscribe()
		events := drain(sub)
		require.Len(t, events, 2)
		assert.Equal(t, core.EventStart, events[0].Type)
		assert.Equal(t, core.EventProgress, events[1].Type)
	})

	t.Run("history ring keeps only the newest events", func(t *testing.T) {
		bus := NewBus(func(o *BusOptions) { o.HistorySize = 3 })
		for i := 0; i < 5; i++ {
			bus.Emit(core.EventProgress, map[string]any{"i": i})
		}

		history := bus.History()
		require.Len(t, history, 3)
		assert.Equal(t, uint64(2), history[0].Sequence)
		assert.Equal(t, uint64(4), history[2].Sequence)
	})
}

func TestBusUnsubscribe(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()
	require.Equal(t, 1, bus.SubscriberCount())

	sub.Close()
	assert.Equal(t, 0, bus.SubscriberCount())

	_, open := <-sub.Events()
	assert.False(t, open)

	// Closing twice is harmless.
	sub.Close()
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	bus.Close()
	_, open := <-sub.Events()
	assert.False(t, open)

	// Emit after close is a no-op and must not panic.
	bus.Emit(core.EventError, nil)

	// Subscribe after close yields a closed subscription.
	late := bus.Subscribe()
	_, open = <-late.Events()
	assert.False(t, open)
}

func TestBusTypedEmitters(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe()

	bus.EmitStart("run-1", "write a poem")
	bus.EmitThinking("reasoning", "considering structure")
	bus.EmitToolCall("file_write", true, map[string]any{"path": "poem.txt"})
	bus.EmitProgress(1, 4)
	bus.EmitComplete("run-1", true, nil)

	events := drain(sub)
	require.Len(t, events, 5)

	assert.Equal(t, core.EventStart, events[0].Type)
	assert.Equal(t, "write a poem", events[0].Data["goal"])

	assert.Equal(t, core.EventThinking, events[1].Type)
	assert.Equal(t, "reasoning", events[1].Data["thought_type"])

	assert.Equal(t, core.EventToolCall, events[2].Type)
	assert.Equal(t, "file_write", events[2].Data["tool"])
	assert.Equal(t, true, events[2].Data["success"])

	assert.Equal(t, core.EventProgress, events[3].Type)
	assert.Equal(t, 25.0, events[3].Data["percent"])

	assert.Equal(t, core.EventComplete, events[4].Type)
}
