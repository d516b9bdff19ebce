package outbox

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"habittracker/pkg/metrics"
)

// ReplayStore is the part of Repository needed to replay parked events.
type ReplayStore interface {
	GetEventByID(ctx context.Context, eventID int64) (*Event, error)
	GetFailedEvents(ctx context.Context, limit int) ([]*Event, error)
	MarkAsSent(ctx context.Context, eventID int64) error
	MarkAsFailed(ctx context.Context, eventID int64, maxRetries int) error
}

// ReplayService republishes events the dispatcher gave up on.
type ReplayService struct {
	store     ReplayStore
	publisher Publisher
	logger    *zap.Logger
}

func NewReplayService(store ReplayStore, publisher Publisher, logger *zap.Logger) *ReplayService {
	return &ReplayService{store: store, publisher: publisher, logger: logger}
}

// ReplayEvent publishes one event regardless of its status. A failure
// leaves it parked as failed.
func (s *ReplayService) ReplayEvent(ctx context.Context, eventID int64) error {
	event, err := s.store.GetEventByID(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to get event: %w", err)
	}

	if err := s.publisher.Publish(traceFromPayload(ctx, event.Payload), event.RoutingKey, event.Payload); err != nil {
		metrics.IncrementOutboxPublish("failed")
		if markErr := s.store.MarkAsFailed(ctx, eventID, 1); markErr != nil {
			return fmt.Errorf("failed to publish and mark as failed: %w (mark error: %v)", err, markErr)
		}
		return fmt.Errorf("failed to publish: %w", err)
	}

	metrics.IncrementOutboxPublish("sent")
	if err := s.store.MarkAsSent(ctx, eventID); err != nil {
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	return nil
}

// ReplayFailedEvents replays up to limit failed events and returns how many
// went through.
func (s *ReplayService) ReplayFailedEvents(ctx context.Context, limit int) (int, error) {
	events, err := s.store.GetFailedEvents(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get failed events: %w", err)
	}

	replayed := 0
	for _, event := range events {
		if err := s.ReplayEvent(ctx, event.ID); err != nil {
			s.logger.Warn("Replay failed",
				zap.Int64("event_id", event.ID),
				zap.String("routing_key", event.RoutingKey),
				zap.Error(err),
			)
			continue
		}
		replayed++
	}
	return replayed, nil
}
