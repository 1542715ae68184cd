package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"car-rental/pkg/logger"
)

// Ride event topics.
const (
	TopicRideCompleted      = "ride.completed"
	TopicCarLocationUpdated = "car.location.updated"
)

const (
	dialAttempts = 20
	dialBackoff  = 3 * time.Second
	partitions   = 3
)

// Client publishes and consumes JSON events. Writers are created per topic on
// first use.
type Client struct {
	brokers []string
	log     logger.Logger

	mu      sync.Mutex
	writers map[string]*kafkago.Writer
}

func NewClient(brokers []string, log logger.Logger) *Client {
	return &Client{brokers: brokers, log: log, writers: make(map[string]*kafkago.Writer)}
}

// EnsureTopics creates the topics, waiting for the broker to come up. A
// CreateTopics error is logged only, since it is what an existing topic
// returns.
func (c *Client) EnsureTopics(ctx context.Context, topics ...string) error {
	configs := make([]kafkago.TopicConfig, len(topics))
	for i, t := range topics {
		configs[i] = kafkago.TopicConfig{Topic: t, NumPartitions: partitions, ReplicationFactor: 1}
	}

	for attempt := 1; attempt <= dialAttempts; attempt++ {
		conn, err := kafkago.DialContext(ctx, "tcp", c.brokers[0])
		if err != nil {
			c.log.Warn("waiting for kafka", logger.Int("attempt", attempt), logger.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(dialBackoff):
			}
			continue
		}

		err = conn.CreateTopics(configs...)
		conn.Close()
		if err != nil {
			c.log.Warn("create topics", logger.Error(err))
		}
		c.log.Info("kafka topics ready", logger.Any("topics", topics))
		return nil
	}
	return fmt.Errorf("kafka: broker %s unreachable after %d attempts", c.brokers[0], dialAttempts)
}

func (c *Client) writer(topic string) *kafkago.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.writers[topic]
	if !ok {
		w = &kafkago.Writer{
			Addr:         kafkago.TCP(c.brokers...),
			Topic:        topic,
			Balancer:     &kafkago.Hash{},
			RequiredAcks: kafkago.RequireOne,
		}
		c.writers[topic] = w
	}
	return w
}

// Publish sends value as JSON keyed by key. Messages sharing a key land on
// the same partition.
func (c *Client) Publish(ctx context.Context, topic, key string, value any) error {
	msg, err := encode(topic, key, value, time.Now())
	if err != nil {
		return err
	}
	if err := c.writer(topic).WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

func encode(topic, key string, value any, at time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("encode %s event: %w", topic, err)
	}
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Time:  at,
		Headers: []kafkago.Header{
			{Key: "content-type", Value: []byte("application/json")},
			{Key: "event", Value: []byte(topic)},
		},
	}, nil
}

// Subscribe consumes topic in the background until ctx is cancelled. Offsets
// are committed after the handler ran; a handler error is logged and the
// message is skipped.
func (c *Client) Subscribe(ctx context.Context, topic, groupID string, handler func([]byte) error) {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  c.brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	log := c.log.With(logger.String("topic", topic), logger.String("group", groupID))

	go func() {
		defer r.Close()
		for {
			msg, err := r.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("kafka fetch", logger.Error(err))
				time.Sleep(time.Second)
				continue
			}
			if err := handler(msg.Value); err != nil {
				log.Error("event skipped", logger.Int64("offset", msg.Offset), logger.Error(err))
			}
			if err := r.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
				log.Warn("kafka commit", logger.Error(err))
			}
		}
	}()
}

// Close flushes and closes every writer.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	for topic, w := range c.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(c.writers, topic)
	}
	return firstErr
}
