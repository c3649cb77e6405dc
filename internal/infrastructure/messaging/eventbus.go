// Package messaging carries domain events from the engine to its subscribers.
// It provides an in-memory bus for a single process and a Redis Pub/Sub bus
// that fans events out to every engine instance.
package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/learnhub/learnhub-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus delivers events to handlers registered in this process.
// In async mode handlers run on a bounded worker pool and Publish never waits
// for them; Close drains whatever is still running.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	middlewares []Middleware
	asyncMode   bool
	workerPool  chan struct{}
	logger      *slog.Logger
	metrics     *EventBusMetrics
	closed      bool
	closeCh     chan struct{}
	wg          sync.WaitGroup
}

// InMemoryEventBusConfig contains configuration for InMemoryEventBus.
type InMemoryEventBusConfig struct {
	// AsyncMode runs handlers off the publisher's goroutine
	AsyncMode bool

	// WorkerPoolSize bounds concurrent handler executions in async mode
	WorkerPoolSize int

	// Middlewares wrap every handler, outermost first
	Middlewares []Middleware

	// EnableMetrics enables metrics collection
	EnableMetrics bool

	Logger *slog.Logger
}

// DefaultInMemoryEventBusConfig returns the settings used by cmd/engine.
func DefaultInMemoryEventBusConfig() InMemoryEventBusConfig {
	return InMemoryEventBusConfig{
		AsyncMode:      true,
		WorkerPoolSize: 8,
		EnableMetrics:  true,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config InMemoryEventBusConfig) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 8
	}

	bus := &InMemoryEventBus{
		handlers:    make(map[shared.EventType][]shared.EventHandler),
		middlewares: config.Middlewares,
		asyncMode:   config.AsyncMode,
		workerPool:  make(chan struct{}, config.WorkerPoolSize),
		logger:      config.Logger.With("component", "event_bus"),
		closeCh:     make(chan struct{}),
	}
	if config.EnableMetrics {
		bus.metrics = NewEventBusMetrics()
	}
	return bus
}

// Subscribe registers a handler for one event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], b.wrap(handler))
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// SubscribeAll registers a handler for every event type.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, b.wrap(handler))
	return nil
}

// Publish hands the event to every matching handler. Handler errors are
// logged and counted; they are never returned to the publisher.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	handlers := make([]shared.EventHandler, 0, len(b.handlers[event.EventType()])+len(b.allHandlers))
	handlers = append(handlers, b.handlers[event.EventType()]...)
	handlers = append(handlers, b.allHandlers...)
	// Add under the read lock so Close cannot start waiting before we do.
	if b.asyncMode {
		b.wg.Add(len(handlers))
	}
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.RecordPublish(event.EventType())
	}
	if len(handlers) == 0 {
		return nil
	}

	for _, handler := range handlers {
		if b.asyncMode {
			go b.executeAsync(event, handler)
			continue
		}
		b.execute(event, handler)
	}
	return nil
}

func (b *InMemoryEventBus) executeAsync(event shared.Event, handler shared.EventHandler) {
	defer b.wg.Done()

	select {
	case b.workerPool <- struct{}{}:
		defer func() { <-b.workerPool }()
	case <-b.closeCh:
		b.logger.Warn("dropping event on shutdown", "event_type", event.EventType())
		return
	}
	b.execute(event, handler)
}

func (b *InMemoryEventBus) execute(event shared.Event, handler shared.EventHandler) {
	start := time.Now()
	err := handler(event)
	duration := time.Since(start)

	if b.metrics != nil {
		b.metrics.RecordHandlerExecution(event.EventType(), duration, err == nil)
	}
	if err != nil {
		b.logger.Error("event handler failed",
			"event_type", event.EventType(),
			"aggregate_id", event.AggregateID(),
			"duration", duration,
			"error", err,
		)
	}
}

// wrap applies the configured middlewares around a panic guard.
func (b *InMemoryEventBus) wrap(handler shared.EventHandler) shared.EventHandler {
	h := RecoveryMiddleware(b.logger)(handler)
	for i := len(b.middlewares) - 1; i >= 0; i-- {
		h = b.middlewares[i](h)
	}
	return h
}

// Close stops accepting events and waits for running handlers.
// Handlers still waiting for a worker slot are dropped.
func (b *InMemoryEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.closeCh)
	b.mu.Unlock()

	b.wg.Wait()
	b.logger.Info("event bus closed")
	return nil
}

// Drain waits for in-flight handlers without closing the bus.
func (b *InMemoryEventBus) Drain() {
	b.wg.Wait()
}

// Metrics returns the metrics tracker, or nil when disabled.
func (b *InMemoryEventBus) Metrics() *EventBusMetrics {
	return b.metrics
}

// ══════════════════════════════════════════════════════════════════════════════
// REDIS EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// RedisEventBus publishes every event to a Redis channel and delivers events
// published by other instances to the local handlers. Local handlers see the
// original typed event; remote ones see a RemoteEvent.
type RedisEventBus struct {
	client      RedisClient
	localBus    *InMemoryEventBus
	channelName string
	instanceID  string
	logger      *slog.Logger
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

// RedisClient is the Pub/Sub subset the bus needs. See NewGoRedisClient.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channels ...string) (<-chan RedisMessage, error)
	Close() error
}

// RedisMessage is a message received from Redis Pub/Sub.
type RedisMessage struct {
	Channel string
	Payload string
	Err     error
}

// RedisEventBusConfig contains configuration for RedisEventBus.
type RedisEventBusConfig struct {
	Client RedisClient

	// ChannelName is the Redis channel for events (default: "learnhub:events")
	ChannelName string

	// InstanceID filters out this instance's own messages (default: random)
	InstanceID string

	LocalBusConfig InMemoryEventBusConfig
	Logger         *slog.Logger
}

// NewRedisEventBus creates the bus and starts the subscription loop.
func NewRedisEventBus(config RedisEventBusConfig) (*RedisEventBus, error) {
	if config.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if config.ChannelName == "" {
		config.ChannelName = "learnhub:events"
	}
	if config.InstanceID == "" {
		config.InstanceID = "engine-" + uuid.NewString()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.LocalBusConfig.Logger == nil {
		config.LocalBusConfig.Logger = config.Logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	bus := &RedisEventBus{
		client:      config.Client,
		localBus:    NewInMemoryEventBus(config.LocalBusConfig),
		channelName: config.ChannelName,
		instanceID:  config.InstanceID,
		logger:      config.Logger.With("component", "redis_event_bus"),
		ctx:         ctx,
		cancel:      cancel,
	}

	messages, err := bus.client.Subscribe(ctx, bus.channelName)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe %s: %w", bus.channelName, err)
	}

	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		bus.subscriptionLoop(messages)
	}()

	return bus, nil
}

// Subscribe registers a handler for one event type.
func (b *RedisEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	return b.localBus.Subscribe(eventType, handler)
}

// SubscribeAll registers a handler for every event type.
func (b *RedisEventBus) SubscribeAll(handler shared.EventHandler) error {
	return b.localBus.SubscribeAll(handler)
}

// Publish sends the event to Redis and to the local handlers. A Redis failure
// is logged and local delivery still happens.
func (b *RedisEventBus) Publish(event shared.Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	b.mu.RLock()
	closed := b.closed
	b.mu.RUnlock()
	if closed {
		return ErrEventBusClosed
	}

	data, err := json.Marshal(eventEnvelope{
		InstanceID:  b.instanceID,
		EventType:   event.EventType(),
		AggregateID: event.AggregateID(),
		OccurredAt:  event.OccurredAt(),
		Payload:     event.Payload(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := b.client.Publish(b.ctx, b.channelName, string(data)); err != nil {
		b.logger.Error("failed to publish to redis",
			"event_type", event.EventType(),
			"error", err,
		)
	}

	return b.localBus.Publish(event)
}

func (b *RedisEventBus) subscriptionLoop(messages <-chan RedisMessage) {
	for {
		select {
		case <-b.ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			if msg.Err != nil {
				b.logger.Error("redis subscription error", "error", msg.Err)
				continue
			}
			b.handleRedisMessage(msg)
		}
	}
}

func (b *RedisEventBus) handleRedisMessage(msg RedisMessage) {
	var envelope eventEnvelope
	if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
		b.logger.Error("failed to unmarshal event", "error", err)
		return
	}

	// Own events were already delivered locally.
	if envelope.InstanceID == b.instanceID {
		return
	}

	event := &RemoteEvent{
		eventType:   envelope.EventType,
		aggregateID: envelope.AggregateID,
		occurredAt:  envelope.OccurredAt,
		payload:     envelope.Payload,
	}
	if err := b.localBus.Publish(event); err != nil {
		b.logger.Error("failed to deliver remote event", "error", err)
	}
}

// Close stops the subscription loop, the Redis client and the local bus.
func (b *RedisEventBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.wg.Wait()

	if err := b.client.Close(); err != nil {
		b.logger.Warn("failed to close redis pubsub", "error", err)
	}
	return b.localBus.Close()
}

// Drain waits for in-flight local handlers.
func (b *RedisEventBus) Drain() {
	b.localBus.Drain()
}

// Metrics returns the metrics of the local bus.
func (b *RedisEventBus) Metrics() *EventBusMetrics {
	return b.localBus.Metrics()
}

// ══════════════════════════════════════════════════════════════════════════════
// WIRE FORMAT
// ══════════════════════════════════════════════════════════════════════════════

type eventEnvelope struct {
	InstanceID  string                 `json:"instance_id"`
	EventType   shared.EventType       `json:"event_type"`
	AggregateID string                 `json:"aggregate_id"`
	OccurredAt  time.Time              `json:"occurred_at"`
	Payload     map[string]interface{} `json:"payload"`
}

// RemoteEvent is an event received from another instance. Its payload went
// through JSON, so numbers arrive as float64.
type RemoteEvent struct {
	eventType   shared.EventType
	aggregateID string
	occurredAt  time.Time
	payload     map[string]interface{}
}

func (e *RemoteEvent) EventType() shared.EventType { return e.eventType }

func (e *RemoteEvent) AggregateID() string { return e.aggregateID }

func (e *RemoteEvent) OccurredAt() time.Time { return e.occurredAt }

func (e *RemoteEvent) Payload() map[string]interface{} { return e.payload }

// ══════════════════════════════════════════════════════════════════════════════
// METRICS
// ══════════════════════════════════════════════════════════════════════════════

// EventBusMetrics counts publishes and handler outcomes.
type EventBusMetrics struct {
	mu sync.RWMutex

	published     map[shared.EventType]int64
	executions    int64
	successes     int64
	failures      int64
	totalDuration time.Duration
	since         time.Time
}

// NewEventBusMetrics creates an empty tracker.
func NewEventBusMetrics() *EventBusMetrics {
	return &EventBusMetrics{
		published: make(map[shared.EventType]int64),
		since:     time.Now(),
	}
}

// RecordPublish counts one published event.
func (m *EventBusMetrics) RecordPublish(eventType shared.EventType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published[eventType]++
}

// RecordHandlerExecution counts one handler run.
func (m *EventBusMetrics) RecordHandlerExecution(_ shared.EventType, duration time.Duration, success bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.executions++
	m.totalDuration += duration
	if success {
		m.successes++
	} else {
		m.failures++
	}
}

// Snapshot returns a copy of the counters.
func (m *EventBusMetrics) Snapshot() EventBusMetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := EventBusMetricsSnapshot{
		PublishedByType:    make(map[shared.EventType]int64, len(m.published)),
		HandlerExecutions:  m.executions,
		HandlerFailures:    m.failures,
		HandlerSuccessRate: 1.0,
		Since:              m.since,
	}
	for t, n := range m.published {
		snap.PublishedByType[t] = n
		snap.TotalPublished += n
	}
	if m.executions > 0 {
		snap.HandlerSuccessRate = float64(m.successes) / float64(m.executions)
		snap.AverageHandlerDuration = m.totalDuration / time.Duration(m.executions)
	}
	return snap
}

// EventBusMetricsSnapshot is a point-in-time copy of EventBusMetrics.
type EventBusMetricsSnapshot struct {
	TotalPublished         int64                      `json:"total_published"`
	PublishedByType        map[shared.EventType]int64 `json:"published_by_type"`
	HandlerExecutions      int64                      `json:"handler_executions"`
	HandlerFailures        int64                      `json:"handler_failures"`
	HandlerSuccessRate     float64                    `json:"handler_success_rate"`
	AverageHandlerDuration time.Duration              `json:"average_handler_duration"`
	Since                  time.Time                  `json:"since"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEventBusClosed is returned when operations are attempted on a closed bus.
	ErrEventBusClosed = errors.New("event bus is closed")

	// ErrHandlerPanic wraps a recovered handler panic.
	ErrHandlerPanic = errors.New("handler panicked")

	// ErrHandlerTimeout is returned by TimeoutMiddleware.
	ErrHandlerTimeout = errors.New("handler timed out")
)
