package outbox

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReplayStore struct {
	fakeStore
	byID         map[int64]*Event
	failedEvents []*Event
}

func (s *fakeReplayStore) GetEventByID(_ context.Context, id int64) (*Event, error) {
	e, ok := s.byID[id]
	if !ok {
		return nil, errors.New("no rows in result set")
	}
	return e, nil
}

func (s *fakeReplayStore) GetFailedEvents(context.Context, int) ([]*Event, error) {
	return s.failedEvents, nil
}

func TestReplayFailedEvents(t *testing.T) {
	e1 := event(1, "habit.created", `{"trace_id":"t-9"}`)
	e2 := event(2, "broken", `{}`)
	store := &fakeReplayStore{
		byID:         map[int64]*Event{1: e1, 2: e2},
		failedEvents: []*Event{e1, e2},
	}
	pub := &fakePublisher{publishFn: func(key string) error {
		if key == "broken" {
			return errors.New("nack")
		}
		return nil
	}}

	n, err := NewReplayService(store, pub, zap.NewNop()).ReplayFailedEvents(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1}, store.sent)
	assert.Equal(t, []int64{2}, store.failed)
	require.Len(t, pub.got, 1)
	assert.Equal(t, "t-9", pub.got[0].traceID)
}

func TestReplayEvent_Unknown(t *testing.T) {
	store := &fakeReplayStore{byID: map[int64]*Event{}}
	err := NewReplayService(store, &fakePublisher{}, zap.NewNop()).ReplayEvent(context.Background(), 7)
	assert.Error(t, err)
}
