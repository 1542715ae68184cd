package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"car-rental/internal/events"
	"car-rental/pkg/kafka"
	"car-rental/pkg/logger"
)

// dayLayout keys the revenue tally by UTC day.
const dayLayout = "2006-01-02"

// Subscriber consumes a topic in the background. *kafka.Client satisfies it.
type Subscriber interface {
	Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error)
}

// RevenueStore accumulates revenue per day. *redis.Client satisfies it.
type RevenueStore interface {
	AddRevenue(ctx context.Context, day string, amount float64) (float64, error)
	Revenue(ctx context.Context, day string) (float64, error)
}

// Tally keeps today's revenue from completed rides, ahead of the backend's
// own reports.
type Tally struct {
	store RevenueStore
	log   logger.Logger
	now   func() time.Time
}

// Today is the live figure shown on the reports page.
type Today struct {
	Day     string  `json:"day"`
	Revenue float64 `json:"revenue"`
}

func NewTally(store RevenueStore, log logger.Logger) *Tally {
	return &Tally{store: store, log: log, now: time.Now}
}

// Start consumes ride.completed until ctx is cancelled.
func (t *Tally) Start(ctx context.Context, sub Subscriber) {
	sub.Subscribe(ctx, kafka.TopicRideCompleted, "revenue-tally", func(data []byte) error {
		return t.Handle(ctx, data)
	})
}

// Handle adds one ride.completed event to its day's total.
func (t *Tally) Handle(ctx context.Context, data []byte) error {
	var ev events.RideCompletedEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("failed to decode ride.completed: %w", err)
	}
	at, err := time.Parse(time.RFC3339, ev.CompletedAt)
	if err != nil {
		at = t.now()
	}
	day := at.UTC().Format(dayLayout)
	total, err := t.store.AddRevenue(ctx, day, ev.TotalCost)
	if err != nil {
		return err
	}
	t.log.Debug("revenue tallied",
		logger.String("ride_id", ev.RideID),
		logger.String("day", day),
		logger.Float64("total", total))
	return nil
}

func (t *Tally) Today(ctx context.Context) (*Today, error) {
	day := t.now().UTC().Format(dayLayout)
	rev, err := t.store.Revenue(ctx, day)
	if err != nil {
		return nil, err
	}
	return &Today{Day: day, Revenue: rev}, nil
}
