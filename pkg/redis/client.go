package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"car-rental/pkg/logger"
)

const (
	carLocationsKey     = "car:locations"
	notificationsKey    = "notifications"
	notificationsRead   = "notifications:read"
	revenueKeyPrefix    = "revenue:"
	revenueRetention    = 8 * 24 * time.Hour
	connectAttempts     = 20
	connectAttemptDelay = 2 * time.Second
)

// Client wraps the Redis connection.
type Client struct {
	rdb *goredis.Client
}

// NewClient connects to Redis with retry.
func NewClient(addr, password string, log logger.Logger) (*Client, error) {
	rdb := goredis.NewClient(&goredis.Options{Addr: addr, Password: password})
	for i := 0; i < connectAttempts; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err == nil {
			log.Info("connected to redis", logger.String("addr", addr))
			return &Client{rdb: rdb}, nil
		}
		log.Warn("waiting for redis", logger.Int("attempt", i+1), logger.Error(err))
		time.Sleep(connectAttemptDelay)
	}
	rdb.Close()
	return nil, fmt.Errorf("redis: failed to connect after %d attempts", connectAttempts)
}

// SetCarLocation stores a car's position in the GEO set.
func (c *Client) SetCarLocation(ctx context.Context, carID string, lat, lng float64) error {
	return c.rdb.GeoAdd(ctx, carLocationsKey, &goredis.GeoLocation{
		Name:      carID,
		Longitude: lng,
		Latitude:  lat,
	}).Err()
}

// GetNearbyCars returns car IDs within radiusKm of (lat,lng), nearest first.
// GEORADIUS rather than GEOSEARCH keeps it runnable against miniredis.
func (c *Client) GetNearbyCars(ctx context.Context, lat, lng, radiusKm float64, count int) ([]string, error) {
	locs, err := c.rdb.GeoRadius(ctx, carLocationsKey, lng, lat, &goredis.GeoRadiusQuery{
		Radius: radiusKm,
		Unit:   "km",
		Count:  count,
		Sort:   "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(locs))
	for _, l := range locs {
		ids = append(ids, l.Name)
	}
	return ids, nil
}

// RemoveCarLocation drops a car from the GEO set (e.g. once it is rented).
func (c *Client) RemoveCarLocation(ctx context.Context, carID string) error {
	return c.rdb.ZRem(ctx, carLocationsKey, carID).Err()
}

// PushNotification prepends an encoded notification and trims the list to max.
func (c *Client) PushNotification(ctx context.Context, data []byte, max int64) error {
	pipe := c.rdb.TxPipeline()
	pipe.LPush(ctx, notificationsKey, data)
	pipe.LTrim(ctx, notificationsKey, 0, max-1)
	_, err := pipe.Exec(ctx)
	return err
}

// Notifications returns every stored notification, newest first, together
// with the set of ids marked read.
func (c *Client) Notifications(ctx context.Context) ([]string, map[string]bool, error) {
	items, err := c.rdb.LRange(ctx, notificationsKey, 0, -1).Result()
	if err != nil {
		return nil, nil, err
	}
	ids, err := c.rdb.SMembers(ctx, notificationsRead).Result()
	if err != nil {
		return nil, nil, err
	}
	read := make(map[string]bool, len(ids))
	for _, id := range ids {
		read[id] = true
	}
	return items, read, nil
}

// MarkNotificationRead records id as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.rdb.SAdd(ctx, notificationsRead, id).Err()
}

// ClearNotifications removes every notification and read marker.
func (c *Client) ClearNotifications(ctx context.Context) error {
	return c.rdb.Del(ctx, notificationsKey, notificationsRead).Err()
}

// AddRevenue accumulates amount into the tally for day (YYYY-MM-DD) and
// returns the new total.
func (c *Client) AddRevenue(ctx context.Context, day string, amount float64) (float64, error) {
	key := revenueKeyPrefix + day
	pipe := c.rdb.TxPipeline()
	incr := pipe.IncrByFloat(ctx, key, amount)
	pipe.Expire(ctx, key, revenueRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Revenue returns the tally for day, 0 when nothing was recorded.
func (c *Client) Revenue(ctx context.Context, day string) (float64, error) {
	v, err := c.rdb.Get(ctx, revenueKeyPrefix+day).Float64()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	return v, err
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

// Close tears down the Redis connection.
func (c *Client) Close() error { return c.rdb.Close() }
