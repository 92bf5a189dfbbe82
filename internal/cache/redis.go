// Package cache keeps provider range listings in Redis so repeated view
// switches do not hit the calendar API.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/theakshaypant/gridcal/internal/core"
)

// DefaultTTL bounds how stale a listing can get when writes happen outside
// gridcal.
const DefaultTTL = 2 * time.Minute

const prefix = "gridcal:"

// RangeCache implements service.RangeCache on top of a Redis client.
// Errors are logged and reported as misses.
type RangeCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// Connect parses a redis:// URL and verifies the connection.
func Connect(ctx context.Context, url string, ttl time.Duration, logger *zap.Logger) (*RangeCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return New(client, ttl, logger), nil
}

func New(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RangeCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RangeCache{client: client, ttl: ttl, log: logger.Named("range_cache")}
}

func rangeKey(userID, calendarID string, start, end time.Time) string {
	return prefix + "range:" + userID + ":" + calendarID + ":" +
		strconv.FormatInt(start.Unix(), 10) + ":" + strconv.FormatInt(end.Unix(), 10)
}

// userKey indexes every range key of a user so writes can drop them.
func userKey(userID string) string {
	return prefix + "user:" + userID
}

func (c *RangeCache) Get(ctx context.Context, userID, calendarID string, start, end time.Time) ([]core.Event, bool) {
	data, err := c.client.Get(ctx, rangeKey(userID, calendarID, start, end)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		c.log.Warn("cache read failed", zap.Error(err))
		return nil, false
	}
	var events []core.Event
	if err := json.Unmarshal(data, &events); err != nil {
		c.log.Warn("cache entry corrupt", zap.Error(err))
		return nil, false
	}
	return events, true
}

func (c *RangeCache) Put(ctx context.Context, userID, calendarID string, start, end time.Time, events []core.Event) {
	data, err := json.Marshal(events)
	if err != nil {
		c.log.Warn("cache encode failed", zap.Error(err))
		return
	}
	key := rangeKey(userID, calendarID, start, end)
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, data, c.ttl)
		pipe.SAdd(ctx, userKey(userID), key)
		pipe.Expire(ctx, userKey(userID), c.ttl)
		return nil
	})
	if err != nil {
		c.log.Warn("cache write failed", zap.Error(err))
	}
}

func (c *RangeCache) Invalidate(ctx context.Context, userID string) {
	keys, err := c.client.SMembers(ctx, userKey(userID)).Result()
	if err != nil {
		c.log.Warn("cache index read failed", zap.Error(err))
		return
	}
	keys = append(keys, userKey(userID))
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Warn("cache invalidate failed", zap.Error(err))
	}
}

func (c *RangeCache) Close() error {
	return c.client.Close()
}
