package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"habittracker/pkg/circuitbreaker"
	"habittracker/pkg/metrics"
	"habittracker/pkg/trace"
)

// EventStore is the part of Repository the dispatcher needs.
type EventStore interface {
	GetPendingEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// Publisher sends an already encoded event body under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body json.RawMessage) error
}

// Dispatcher drains pending outbox events to the broker.
type Dispatcher struct {
	store      EventStore
	publisher  Publisher
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
	maxRetries int
	interval   time.Duration
	batchSize  int
}

// BreakerName labels the default publish breaker in metrics.
const BreakerName = "outbox_publisher"

func NewDispatcher(store EventStore, publisher Publisher, logger *zap.Logger) *Dispatcher {
	cbConfig := circuitbreaker.DefaultConfig()
	cbConfig.Name = BreakerName
	return &Dispatcher{
		store:      store,
		publisher:  publisher,
		breaker:    circuitbreaker.NewCircuitBreaker(cbConfig),
		logger:     logger,
		maxRetries: 5,
		interval:   time.Second,
		batchSize:  100,
	}
}

func (d *Dispatcher) WithMaxRetries(maxRetries int) *Dispatcher {
	d.maxRetries = maxRetries
	return d
}

func (d *Dispatcher) WithInterval(interval time.Duration) *Dispatcher {
	if interval > 0 {
		d.interval = interval
	}
	return d
}

func (d *Dispatcher) WithBatchSize(batchSize int) *Dispatcher {
	if batchSize > 0 {
		d.batchSize = batchSize
	}
	return d
}

func (d *Dispatcher) WithBreaker(cb *circuitbreaker.CircuitBreaker) *Dispatcher {
	d.breaker = cb
	return d
}

// Start polls until ctx is cancelled. Run it in its own goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Starting Outbox Dispatcher",
		zap.Int("max_retries", d.maxRetries),
		zap.Duration("interval", d.interval),
		zap.Int("batch_size", d.batchSize),
	)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Outbox Dispatcher stopped")
			return
		case <-ticker.C:
			d.ProcessPending(ctx)
		}
	}
}

// ProcessPending handles one batch and returns how many events were sent.
func (d *Dispatcher) ProcessPending(ctx context.Context) int {
	events, err := d.store.GetPendingEvents(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to get pending events", zap.Error(err))
		return 0
	}
	if len(events) == 0 {
		return 0
	}

	d.logger.Debug("Processing pending events", zap.Int("count", len(events)))

	sent := 0
	for _, event := range events {
		err := d.breaker.Execute(func() error {
			return d.publishEvent(ctx, event)
		})
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			// Broker is considered down; leave the rest of the batch pending
			// without burning their retry budget.
			metrics.IncrementOutboxPublish("skipped")
			d.logger.Warn("Circuit breaker open, postponing outbox batch",
				zap.Int64("event_id", event.ID),
			)
			return sent
		}
		if err != nil {
			metrics.IncrementOutboxPublish("failed")
			d.logger.Error("Failed to publish event",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Error(err),
			)
			if err := d.store.MarkAsFailed(ctx, event.ID, d.maxRetries); err != nil {
				d.logger.Error("Failed to mark event as failed",
					zap.Int64("event_id", event.ID),
					zap.Error(err),
				)
			}
			continue
		}

		metrics.IncrementOutboxPublish("sent")
		if err := d.store.MarkAsSent(ctx, event.ID); err != nil {
			d.logger.Error("Failed to mark event as sent",
				zap.Int64("event_id", event.ID),
				zap.Error(err),
			)
			continue
		}
		sent++
		d.logger.Debug("Event published successfully",
			zap.Int64("event_id", event.ID),
			zap.String("routing_key", event.RoutingKey),
		)
	}
	return sent
}

func (d *Dispatcher) publishEvent(ctx context.Context, event *Event) error {
	ctx = traceFromPayload(ctx, event.Payload)
	if err := d.publisher.Publish(ctx, event.RoutingKey, event.Payload); err != nil {
		return fmt.Errorf("failed to publish to MQ: %w", err)
	}
	return nil
}

// traceFromPayload carries the trace_id recorded at write time onto the
// publish context.
func traceFromPayload(ctx context.Context, payload json.RawMessage) context.Context {
	var p struct {
		TraceID string `json:"trace_id"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.TraceID == "" {
		return ctx
	}
	return trace.WithContext(ctx, p.TraceID)
}
