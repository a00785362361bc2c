package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newSyncBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = false
	return NewInMemoryEventBus(cfg)
}

func profileEvent(owner shared.Identity) shared.Event {
	return shared.NewProfileCreatedEvent(owner, string(owner), string(owner)+"42", testTime)
}

func TestInMemoryEventBus_Subscribe(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var got []shared.EventType
	require.NoError(t, bus.Subscribe(shared.EventProfileCreated, func(e shared.Event) error {
		got = append(got, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(profileEvent("alice")))

	require.Len(t, got, 1)
	assert.Equal(t, shared.EventProfileCreated, got[0])
}

func TestInMemoryEventBus_SubscribeDoesNotMatchOtherTypes(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	calls := 0
	require.NoError(t, bus.Subscribe(shared.EventRewardClaimed, func(e shared.Event) error {
		calls++
		return nil
	}))

	require.NoError(t, bus.Publish(profileEvent("alice")))
	assert.Equal(t, 0, calls)
}

func TestInMemoryEventBus_SubscribeAll(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	var got []string
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		got = append(got, e.AggregateID())
		return nil
	}))

	require.NoError(t, bus.Publish(profileEvent("alice")))
	require.NoError(t, bus.Publish(profileEvent("bob")))

	assert.Equal(t, []string{"alice", "bob"}, got)
}

func TestInMemoryEventBus_NilHandlerRejected(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventProfileCreated, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

func TestInMemoryEventBus_NilEventRejected(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	assert.Error(t, bus.Publish(nil))
}

func TestInMemoryEventBus_AsyncDelivery(t *testing.T) {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.AsyncMode = true
	cfg.WorkerPoolSize = 4
	bus := NewInMemoryEventBus(cfg)

	var calls atomic.Int64
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		calls.Add(1)
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(profileEvent("alice")))
	}

	require.Eventually(t, func() bool {
		return calls.Load() == 20
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, bus.Close())
}

func TestInMemoryEventBus_HandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	second := false
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		return errors.New("boom")
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		second = true
		return nil
	}))

	require.NoError(t, bus.Publish(profileEvent("alice")))
	assert.True(t, second)
}

func TestInMemoryEventBus_Closed(t *testing.T) {
	bus := newSyncBus()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(profileEvent("alice")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventProfileCreated, func(e shared.Event) error { return nil }), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(e shared.Event) error { return nil }), ErrEventBusClosed)

	// Double close is a no-op.
	assert.NoError(t, bus.Close())
}

func TestInMemoryEventBus_Metrics(t *testing.T) {
	bus := newSyncBus()
	defer bus.Close()

	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error { return nil }))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error { return errors.New("boom") }))

	require.NoError(t, bus.Publish(profileEvent("alice")))

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(1), snap.TotalPublished)
	assert.Equal(t, int64(2), snap.TotalHandlerExecs)
	assert.InDelta(t, 0.5, snap.HandlerSuccessRate, 0.001)
}

// ─────────────────────────────────────────────────────────────────────────────
// Redis event bus
// ─────────────────────────────────────────────────────────────────────────────

// fakeRedisClient records published messages and lets tests inject incoming
// ones.
type fakeRedisClient struct {
	mu        sync.Mutex
	published []string
	incoming  chan RedisMessage
	closed    bool
}

func newFakeRedisClient() *fakeRedisClient {
	return &fakeRedisClient{incoming: make(chan RedisMessage, 16)}
}

func (c *fakeRedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published = append(c.published, message.(string))
	return nil
}

func (c *fakeRedisClient) Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error) {
	return c.incoming, nil
}

func (c *fakeRedisClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeRedisClient) publishedCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.published)
}

func (c *fakeRedisClient) lastPublished() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.published[len(c.published)-1]
}

func newTestRedisBus(t *testing.T, client RedisClient) *RedisEventBus {
	t.Helper()
	localCfg := DefaultInMemoryEventBusConfig()
	localCfg.AsyncMode = false
	bus, err := NewRedisEventBus(RedisEventBusConfig{
		Client:         client,
		ChannelName:    "test:events",
		InstanceID:     "instance-a",
		LocalBusConfig: localCfg,
	})
	require.NoError(t, err)
	return bus
}

func TestRedisEventBus_RequiresClient(t *testing.T) {
	_, err := NewRedisEventBus(RedisEventBusConfig{})
	assert.Error(t, err)
}

func TestRedisEventBus_PublishGoesToRedisAndLocal(t *testing.T) {
	client := newFakeRedisClient()
	bus := newTestRedisBus(t, client)
	defer bus.Close()

	var local []shared.EventType
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		local = append(local, e.EventType())
		return nil
	}))

	require.NoError(t, bus.Publish(profileEvent("alice")))

	require.Len(t, local, 1)
	require.Equal(t, 1, client.publishedCount())

	var env wireEnvelope
	require.NoError(t, json.Unmarshal([]byte(client.lastPublished()), &env))
	assert.Equal(t, "instance-a", env.InstanceID)
	assert.Equal(t, shared.EventProfileCreated, env.EventType)
	assert.Equal(t, "alice", env.AggregateID)
}

func TestRedisEventBus_RemoteEventDelivered(t *testing.T) {
	client := newFakeRedisClient()
	bus := newTestRedisBus(t, client)
	defer bus.Close()

	got := make(chan shared.Event, 1)
	require.NoError(t, bus.Subscribe(shared.EventRewardClaimed, func(e shared.Event) error {
		got <- e
		return nil
	}))

	remote := wireEnvelope{
		InstanceID:  "instance-b",
		EventType:   shared.EventRewardClaimed,
		AggregateID: "some-request",
		OccurredAt:  testTime,
		Payload:     map[string]interface{}{"xp_awarded": float64(40)},
	}
	data, err := json.Marshal(remote)
	require.NoError(t, err)
	client.incoming <- RedisMessage{Channel: "test:events", Payload: string(data)}

	select {
	case e := <-got:
		assert.Equal(t, shared.EventRewardClaimed, e.EventType())
		assert.Equal(t, "some-request", e.AggregateID())
		assert.Equal(t, float64(40), e.Payload()["xp_awarded"])
	case <-time.After(time.Second):
		t.Fatal("remote event was not delivered")
	}
}

func TestRedisEventBus_SelfPublishedEventsSkipped(t *testing.T) {
	client := newFakeRedisClient()
	bus := newTestRedisBus(t, client)
	defer bus.Close()

	var calls atomic.Int64
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		calls.Add(1)
		return nil
	}))

	// An echo of our own publish must not be processed twice.
	echo := wireEnvelope{
		InstanceID:  "instance-a",
		EventType:   shared.EventProfileCreated,
		AggregateID: "alice",
		OccurredAt:  testTime,
	}
	data, err := json.Marshal(echo)
	require.NoError(t, err)
	client.incoming <- RedisMessage{Channel: "test:events", Payload: string(data)}

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(0), calls.Load())
}

func TestRedisEventBus_ClosedRejectsPublish(t *testing.T) {
	client := newFakeRedisClient()
	bus := newTestRedisBus(t, client)

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(profileEvent("alice")), ErrEventBusClosed)
}
