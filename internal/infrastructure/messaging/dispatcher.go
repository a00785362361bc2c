// Package messaging implements event bus functionality for the peer-help hub.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/suilotion/peerhelp-hub/internal/domain/shared"
	"github.com/suilotion/peerhelp-hub/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER
// Sits between the event bus and the projection/cache handlers. A ledger
// mutation has already committed by the time an event reaches a handler, so
// a failing handler must not be dropped silently: the dispatcher retries
// with backoff and parks exhausted events in a dead letter queue for
// operator replay.
// ══════════════════════════════════════════════════════════════════════════════

// Dispatcher routes events to named handlers with retry and a dead letter
// queue.
type Dispatcher struct {
	eventBus EventBus
	handlers map[shared.EventType][]Registration
	all      []Registration
	retrier  *retry.Retrier
	deadLQ   *DeadLetterQueue
	logger   *slog.Logger
	metrics  *DispatcherMetrics
	mu       sync.RWMutex
}

// Registration contains handler metadata.
type Registration struct {
	// Name identifies the handler in logs and the dead letter queue.
	Name string

	// Handler is the event handler.
	Handler shared.EventHandler

	// Timeout bounds one handler attempt (default 30s).
	Timeout time.Duration
}

// DispatcherConfig contains configuration for the Dispatcher.
type DispatcherConfig struct {
	// EventBus is the underlying event bus.
	EventBus EventBus

	// MaxAttempts is the number of attempts per handler (default 3).
	MaxAttempts int

	// InitialBackoff is the initial wait between retries (default 100ms).
	InitialBackoff time.Duration

	// MaxBackoff is the maximum wait between retries (default 5s).
	MaxBackoff time.Duration

	// DeadLetterQueueSize caps the dead letter queue (0 disables it).
	DeadLetterQueueSize int

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultDispatcherConfig returns sensible defaults.
func DefaultDispatcherConfig(eventBus EventBus) DispatcherConfig {
	return DispatcherConfig{
		EventBus:            eventBus,
		MaxAttempts:         3,
		InitialBackoff:      100 * time.Millisecond,
		MaxBackoff:          5 * time.Second,
		DeadLetterQueueSize: 1000,
	}
}

// NewDispatcher creates a new event dispatcher.
func NewDispatcher(config DispatcherConfig) *Dispatcher {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 3
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = 100 * time.Millisecond
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = 5 * time.Second
	}

	d := &Dispatcher{
		eventBus: config.EventBus,
		handlers: make(map[shared.EventType][]Registration),
		// Handlers return plain errors, so every failure is retried unless
		// wrapped as retry.Permanent.
		retrier: retry.New(
			retry.WithMaxAttempts(config.MaxAttempts),
			retry.WithInitialDelay(config.InitialBackoff),
			retry.WithMaxDelay(config.MaxBackoff),
			retry.WithRetryIf(func(error) bool { return true }),
		),
		logger:  config.Logger.With("component", "dispatcher"),
		metrics: NewDispatcherMetrics(),
	}

	if config.DeadLetterQueueSize > 0 {
		d.deadLQ = NewDeadLetterQueue(config.DeadLetterQueueSize)
	}

	return d
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER REGISTRATION
// ══════════════════════════════════════════════════════════════════════════════

// Register registers a handler for one event type.
func (d *Dispatcher) Register(eventType shared.EventType, name string, handler shared.EventHandler) error {
	return d.register(eventType, false, Registration{Name: name, Handler: handler})
}

// RegisterAll registers a handler for every event type.
func (d *Dispatcher) RegisterAll(name string, handler shared.EventHandler) error {
	return d.register("", true, Registration{Name: name, Handler: handler})
}

func (d *Dispatcher) register(eventType shared.EventType, all bool, reg Registration) error {
	if reg.Handler == nil {
		return errors.New("handler cannot be nil")
	}
	if reg.Name == "" {
		return errors.New("handler name is required")
	}
	if reg.Timeout <= 0 {
		reg.Timeout = 30 * time.Second
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if all {
		d.all = append(d.all, reg)
	} else {
		d.handlers[eventType] = append(d.handlers[eventType], reg)
	}

	d.logger.Debug("registered handler",
		"event_type", string(eventType),
		"handler_name", reg.Name,
		"all_events", all,
	)

	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EVENT DISPATCHING
// ══════════════════════════════════════════════════════════════════════════════

// Start subscribes the dispatcher to the bus.
func (d *Dispatcher) Start() error {
	return d.eventBus.SubscribeAll(d.Dispatch)
}

// Dispatch routes one event through every matching handler. The error, if
// any, aggregates the handlers that exhausted their retries.
func (d *Dispatcher) Dispatch(event shared.Event) error {
	d.mu.RLock()
	regs := make([]Registration, 0, len(d.all)+len(d.handlers[event.EventType()]))
	regs = append(regs, d.all...)
	regs = append(regs, d.handlers[event.EventType()]...)
	d.mu.RUnlock()

	if len(regs) == 0 {
		return nil
	}

	d.metrics.RecordDispatch(event.EventType())

	var failed []error
	for _, reg := range regs {
		if err := d.executeHandler(event, reg); err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", reg.Name, err))
		}
	}

	if len(failed) > 0 {
		return errors.Join(failed...)
	}

	return nil
}

// executeHandler runs one handler with panic recovery, a per-attempt
// timeout, and retry with backoff. Exhausted events go to the dead letter
// queue.
func (d *Dispatcher) executeHandler(event shared.Event, reg Registration) error {
	attempts := 0
	start := time.Now()

	err := d.retrier.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return d.executeOnce(event, reg)
	})

	d.metrics.RecordExecution(event.EventType(), time.Since(start), err == nil)

	if err == nil {
		if attempts > 1 {
			d.metrics.RecordRetrySuccess()
			d.logger.Info("handler recovered after retry",
				"handler", reg.Name,
				"event_type", string(event.EventType()),
				"attempts", attempts,
			)
		}
		return nil
	}

	if d.deadLQ != nil {
		d.deadLQ.Add(DeadLetterEntry{
			Event:       event,
			HandlerName: reg.Name,
			Error:       err,
			Attempts:    attempts,
			FailedAt:    time.Now(),
		})
	}

	d.logger.Error("handler exhausted retries",
		"handler", reg.Name,
		"event_type", string(event.EventType()),
		"aggregate_id", event.AggregateID(),
		"attempts", attempts,
		"error", err,
	)

	return err
}

// executeOnce runs a single handler attempt under its timeout, converting
// panics into errors.
func (d *Dispatcher) executeOnce(event shared.Event, reg Registration) error {
	done := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				stack := string(debug.Stack())
				d.logger.Error("handler panic recovered",
					"handler", reg.Name,
					"event_type", string(event.EventType()),
					"panic", r,
					"stack", stack,
				)
				done <- fmt.Errorf("handler panic: %v", r)
			}
		}()
		done <- reg.Handler(event)
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(reg.Timeout):
		return fmt.Errorf("handler timeout after %v", reg.Timeout)
	}
}

// Metrics returns dispatcher metrics.
func (d *Dispatcher) Metrics() *DispatcherMetrics {
	return d.metrics
}

// DeadLetterQueue returns the dead letter queue, nil when disabled.
func (d *Dispatcher) DeadLetterQueue() *DeadLetterQueue {
	return d.deadLQ
}

// ══════════════════════════════════════════════════════════════════════════════
// DEAD LETTER QUEUE
// ══════════════════════════════════════════════════════════════════════════════

// DeadLetterEntry represents a failed event.
type DeadLetterEntry struct {
	Event       shared.Event
	HandlerName string
	Error       error
	Attempts    int
	FailedAt    time.Time
}

// DeadLetterQueue stores events that failed processing, oldest first.
type DeadLetterQueue struct {
	mu      sync.RWMutex
	entries []DeadLetterEntry
	maxSize int
}

// NewDeadLetterQueue creates a new dead letter queue.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &DeadLetterQueue{
		entries: make([]DeadLetterEntry, 0),
		maxSize: maxSize,
	}
}

// Add adds an entry, evicting the oldest at capacity.
func (q *DeadLetterQueue) Add(entry DeadLetterEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) >= q.maxSize {
		q.entries = q.entries[1:]
	}

	q.entries = append(q.entries, entry)
}

// Entries returns a copy of all entries.
func (q *DeadLetterQueue) Entries() []DeadLetterEntry {
	q.mu.RLock()
	defer q.mu.RUnlock()

	result := make([]DeadLetterEntry, len(q.entries))
	copy(result, q.entries)
	return result
}

// Size returns the current queue size.
func (q *DeadLetterQueue) Size() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.entries)
}

// Pop removes and returns the oldest entry.
func (q *DeadLetterQueue) Pop() (DeadLetterEntry, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.entries) == 0 {
		return DeadLetterEntry{}, false
	}

	entry := q.entries[0]
	q.entries = q.entries[1:]
	return entry, true
}

// Clear removes all entries.
func (q *DeadLetterQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = q.entries[:0]
}

// ══════════════════════════════════════════════════════════════════════════════
// DISPATCHER METRICS
// ══════════════════════════════════════════════════════════════════════════════

// DispatcherMetrics tracks dispatcher performance.
type DispatcherMetrics struct {
	mu sync.RWMutex

	dispatchedByType map[shared.EventType]int64
	executionsTotal  int64
	successTotal     int64
	failuresTotal    int64
	retrySuccesses   int64
	totalDuration    time.Duration
}

// NewDispatcherMetrics creates new dispatcher metrics.
func NewDispatcherMetrics() *DispatcherMetrics {
	return &DispatcherMetrics{
		dispatchedByType: make(map[shared.EventType]int64),
	}
}

// RecordDispatch records an event dispatch.
func (m *DispatcherMetrics) RecordDispatch(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchedByType[eventType]++
}

// RecordExecution records a handler execution.
func (m *DispatcherMetrics) RecordExecution(eventType shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executionsTotal++
	m.totalDuration += duration

	if success {
		m.successTotal++
	} else {
		m.failuresTotal++
	}
}

// RecordRetrySuccess records an execution that succeeded after retrying.
func (m *DispatcherMetrics) RecordRetrySuccess() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retrySuccesses++
}

// Snapshot returns a point-in-time snapshot.
func (m *DispatcherMetrics) Snapshot() DispatcherMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var totalDispatched int64
	for _, v := range m.dispatchedByType {
		totalDispatched += v
	}

	avgDuration := time.Duration(0)
	successRate := 1.0
	if m.executionsTotal > 0 {
		avgDuration = m.totalDuration / time.Duration(m.executionsTotal)
		successRate = float64(m.successTotal) / float64(m.executionsTotal)
	}

	return DispatcherMetricsSnapshot{
		TotalDispatched: totalDispatched,
		TotalExecutions: m.executionsTotal,
		TotalFailures:   m.failuresTotal,
		RetrySuccesses:  m.retrySuccesses,
		SuccessRate:     successRate,
		AverageDuration: avgDuration,
	}
}

// DispatcherMetricsSnapshot is a point-in-time snapshot.
type DispatcherMetricsSnapshot struct {
	TotalDispatched int64
	TotalExecutions int64
	TotalFailures   int64
	RetrySuccesses  int64
	SuccessRate     float64
	AverageDuration time.Duration
}
