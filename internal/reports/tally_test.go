package reports

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"car-rental/internal/events"
	"car-rental/pkg/kafka"
	"car-rental/pkg/logger"
	rredis "car-rental/pkg/redis"
)

// fakeSubscriber hands the registered handler back to the test.
type fakeSubscriber struct {
	mu      sync.Mutex
	topic   string
	handler func([]byte) error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, topic, _ string, handler func([]byte) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.topic = topic
	f.handler = handler
}

func newTally(t *testing.T) *Tally {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := rredis.NewClient(mr.Addr(), "", logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return NewTally(rc, logger.NewNop())
}

func completed(t *testing.T, cost float64, at time.Time) []byte {
	t.Helper()
	data, err := json.Marshal(events.RideCompletedEvent{RideID: "r", TotalCost: cost, CompletedAt: at.Format(time.RFC3339)})
	require.NoError(t, err)
	return data
}

func TestTally_AccumulatesPerDay(t *testing.T) {
	tally := newTally(t)
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	tally.now = func() time.Time { return now }

	sub := &fakeSubscriber{}
	tally.Start(context.Background(), sub)
	require.Equal(t, kafka.TopicRideCompleted, sub.topic)

	require.NoError(t, sub.handler(completed(t, 11.1, now)))
	require.NoError(t, sub.handler(completed(t, 8.9, now.Add(-time.Hour))))
	require.NoError(t, sub.handler(completed(t, 99, now.Add(-24*time.Hour))))

	today, err := tally.Today(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2026-06-10", today.Day)
	assert.InDelta(t, 20.0, today.Revenue, 1e-9)
}

func TestTally_RejectsGarbage(t *testing.T) {
	tally := newTally(t)
	assert.Error(t, tally.Handle(context.Background(), []byte("not json")))
}
