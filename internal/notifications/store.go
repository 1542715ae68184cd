// Package notifications is the process-wide list of user notifications: the
// ride flow writes to it and the notifications page reads from it.
package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	rredis "car-rental/pkg/redis"
)

// MaxStored caps how many notifications either store keeps.
const MaxStored = 200

var ErrNotFound = errors.New("notification not found")

// Store is the shared read/write access to notifications.
type Store interface {
	Push(ctx context.Context, n Notification) (Notification, error)
	List(ctx context.Context) ([]Notification, error)
	MarkRead(ctx context.Context, id string) error
	Clear(ctx context.Context) error
}

// stamp fills the id and time of a notification about to be stored.
func stamp(n Notification) Notification {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Kind == "" {
		n.Kind = KindInfo
	}
	n.Read = false
	return n
}

// ---- in-memory ----

// MemoryStore keeps notifications in process, newest first.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Notification
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Push(_ context.Context, n Notification) (Notification, error) {
	n = stamp(n)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]Notification{n}, s.items...)
	if len(s.items) > MaxStored {
		s.items = s.items[:MaxStored]
	}
	return n, nil
}

func (s *MemoryStore) List(_ context.Context) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Read = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
	return nil
}

// ---- redis ----

// RedisStore shares notifications between server instances.
type RedisStore struct {
	redis *rredis.Client
}

func NewRedisStore(r *rredis.Client) *RedisStore { return &RedisStore{redis: r} }

func (s *RedisStore) Push(ctx context.Context, n Notification) (Notification, error) {
	n = stamp(n)
	data, err := json.Marshal(n)
	if err != nil {
		return Notification{}, err
	}
	if err := s.redis.PushNotification(ctx, data, MaxStored); err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (s *RedisStore) List(ctx context.Context) ([]Notification, error) {
	raw, read, err := s.redis.Notifications(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			continue
		}
		n.Read = read[n.ID]
		out = append(out, n)
	}
	return out, nil
}

func (s *RedisStore) MarkRead(ctx context.Context, id string) error {
	items, err := s.List(ctx)
	if err != nil {
		return err
	}
	for _, n := range items {
		if n.ID == id {
			return s.redis.MarkNotificationRead(ctx, id)
		}
	}
	return ErrNotFound
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.redis.ClearNotifications(ctx)
}

// Unread counts the unread entries of a listing.
func Unread(items []Notification) int {
	n := 0
	for _, it := range items {
		if !it.Read {
			n++
		}
	}
	return n
}
