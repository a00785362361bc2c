package messaging

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

func newTestDispatcher(t *testing.T, bus EventBus) *Dispatcher {
	t.Helper()
	cfg := DefaultDispatcherConfig(bus)
	cfg.MaxAttempts = 3
	cfg.InitialBackoff = time.Millisecond
	cfg.MaxBackoff = 5 * time.Millisecond
	return NewDispatcher(cfg)
}

func TestDispatcher_RoutesByEventType(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()
	d := newTestDispatcher(t, bus)

	var profileCalls, rewardCalls int
	require.NoError(t, d.Register(shared.EventProfileCreated, "profiles", func(e shared.Event) error {
		profileCalls++
		return nil
	}))
	require.NoError(t, d.Register(shared.EventRewardClaimed, "rewards", func(e shared.Event) error {
		rewardCalls++
		return nil
	}))
	require.NoError(t, d.Start())

	require.NoError(t, bus.Publish(profileEvent("alice")))

	assert.Equal(t, 1, profileCalls)
	assert.Equal(t, 0, rewardCalls)
}

func TestDispatcher_RegisterAllSeesEverything(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()
	d := newTestDispatcher(t, bus)

	var got []string
	require.NoError(t, d.RegisterAll("projector", func(e shared.Event) error {
		got = append(got, e.AggregateID())
		return nil
	}))
	require.NoError(t, d.Start())

	require.NoError(t, bus.Publish(profileEvent("alice")))
	require.NoError(t, bus.Publish(profileEvent("bob")))

	assert.Equal(t, []string{"alice", "bob"}, got)
}

func TestDispatcher_RegistrationValidation(t *testing.T) {
	d := newTestDispatcher(t, newSyncBus())

	assert.Error(t, d.Register(shared.EventProfileCreated, "named", nil))
	assert.Error(t, d.Register(shared.EventProfileCreated, "", func(e shared.Event) error { return nil }))
	assert.Error(t, d.RegisterAll("", func(e shared.Event) error { return nil }))
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	d := newTestDispatcher(t, newSyncBus())

	attempts := 0
	require.NoError(t, d.RegisterAll("flaky", func(e shared.Event) error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	}))

	require.NoError(t, d.Dispatch(profileEvent("alice")))
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 0, d.DeadLetterQueue().Size())

	snap := d.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.RetrySuccesses)
	assert.Equal(t, int64(0), snap.TotalFailures)
}

func TestDispatcher_ExhaustedRetriesGoToDeadLetterQueue(t *testing.T) {
	d := newTestDispatcher(t, newSyncBus())

	attempts := 0
	require.NoError(t, d.RegisterAll("broken", func(e shared.Event) error {
		attempts++
		return errors.New("boom")
	}))

	err := d.Dispatch(profileEvent("alice"))
	require.Error(t, err)
	assert.Equal(t, 3, attempts)

	require.Equal(t, 1, d.DeadLetterQueue().Size())
	entry, ok := d.DeadLetterQueue().Pop()
	require.True(t, ok)
	assert.Equal(t, "broken", entry.HandlerName)
	assert.Equal(t, 3, entry.Attempts)
	assert.Equal(t, shared.EventProfileCreated, entry.Event.EventType())
}

func TestDispatcher_OneFailingHandlerDoesNotBlockOthers(t *testing.T) {
	d := newTestDispatcher(t, newSyncBus())

	healthy := 0
	require.NoError(t, d.RegisterAll("broken", func(e shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, d.RegisterAll("healthy", func(e shared.Event) error {
		healthy++
		return nil
	}))

	err := d.Dispatch(profileEvent("alice"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	assert.Equal(t, 1, healthy)
}

func TestDispatcher_PanicRecovered(t *testing.T) {
	d := newTestDispatcher(t, newSyncBus())

	require.NoError(t, d.RegisterAll("panicky", func(e shared.Event) error {
		panic("oops")
	}))

	err := d.Dispatch(profileEvent("alice"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")
	assert.Equal(t, 1, d.DeadLetterQueue().Size())
}

func TestDispatcher_NoHandlersIsNoop(t *testing.T) {
	d := newTestDispatcher(t, newSyncBus())
	assert.NoError(t, d.Dispatch(profileEvent("alice")))
}

func TestDeadLetterQueue_EvictsOldestAtCapacity(t *testing.T) {
	q := NewDeadLetterQueue(2)

	q.Add(DeadLetterEntry{HandlerName: "a"})
	q.Add(DeadLetterEntry{HandlerName: "b"})
	q.Add(DeadLetterEntry{HandlerName: "c"})

	entries := q.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "b", entries[0].HandlerName)
	assert.Equal(t, "c", entries[1].HandlerName)
}

func TestDeadLetterQueue_PopAndClear(t *testing.T) {
	q := NewDeadLetterQueue(10)

	_, ok := q.Pop()
	assert.False(t, ok)

	q.Add(DeadLetterEntry{HandlerName: "a"})
	q.Add(DeadLetterEntry{HandlerName: "b"})

	entry, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, "a", entry.HandlerName)
	assert.Equal(t, 1, q.Size())

	q.Clear()
	assert.Equal(t, 0, q.Size())
}
