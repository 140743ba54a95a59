package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jgirmay/alif24/pkg/config"
)

// ErrCacheMiss means the sorted set is absent and must be rebuilt from SQL.
var ErrCacheMiss = errors.New("leaderboard_cache: not populated")

// ErrNotRanked means the student has no entry in the sorted set.
var ErrNotRanked = errors.New("leaderboard_cache: student not ranked")

const (
	keyPoints = "alif24:leaderboard:points"
	keyInfo   = "alif24:leaderboard:info"
)

// Cache keeps the points ranking in a Redis sorted set (student id -> points)
// with display details in a hash beside it.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient opens a client for the configured server.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Ping satisfies the health checker.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Put adds or moves one entry.
func (c *Cache) Put(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	member := e.StudentID.String()
	pipe := c.client.TxPipeline()
	pipe.ZAdd(ctx, keyPoints, redis.Z{Score: float64(e.TotalPoints), Member: member})
	pipe.HSet(ctx, keyInfo, member, data)
	pipe.Expire(ctx, keyPoints, c.ttl)
	pipe.Expire(ctx, keyInfo, c.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Remove drops one student from the ranking.
func (c *Cache) Remove(ctx context.Context, studentID string) error {
	pipe := c.client.TxPipeline()
	pipe.ZRem(ctx, keyPoints, studentID)
	pipe.HDel(ctx, keyInfo, studentID)
	_, err := pipe.Exec(ctx)
	return err
}

// Rebuild replaces the cached ranking with entries.
func (c *Cache) Rebuild(ctx context.Context, entries []Entry) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, keyPoints, keyInfo)
	if len(entries) > 0 {
		members := make([]redis.Z, 0, len(entries))
		info := make(map[string]interface{}, len(entries))
		for _, e := range entries {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal entry: %w", err)
			}
			members = append(members, redis.Z{Score: float64(e.TotalPoints), Member: e.StudentID.String()})
			info[e.StudentID.String()] = data
		}
		pipe.ZAdd(ctx, keyPoints, members...)
		pipe.HSet(ctx, keyInfo, info)
		pipe.Expire(ctx, keyPoints, c.ttl)
		pipe.Expire(ctx, keyInfo, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Top returns the first limit entries ranked by points.
func (c *Cache) Top(ctx context.Context, limit int) ([]Entry, error) {
	exists, err := c.client.Exists(ctx, keyPoints).Result()
	if err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, ErrCacheMiss
	}

	ids, err := c.client.ZRevRange(ctx, keyPoints, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []Entry{}, nil
	}

	raw, err := c.client.HMGet(ctx, keyInfo, ids...).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			return nil, ErrCacheMiss
		}
		var e Entry
		if err := json.Unmarshal([]byte(s), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
		}
		entries = append(entries, e)
	}
	assignRanks(entries)
	return entries, nil
}

// Rank is one plus the number of students with strictly more points, so ties
// share a rank.
func (c *Cache) Rank(ctx context.Context, studentID string) (int64, error) {
	score, err := c.client.ZScore(ctx, keyPoints, studentID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrNotRanked
		}
		return 0, err
	}
	above, err := c.client.ZCount(ctx, keyPoints, "("+strconv.FormatFloat(score, 'f', -1, 64), "+inf").Result()
	if err != nil {
		return 0, err
	}
	return above + 1, nil
}

func (c *Cache) Count(ctx context.Context) (int64, error) {
	return c.client.ZCard(ctx, keyPoints).Result()
}
