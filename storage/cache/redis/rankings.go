// Package rediscache caches classroom leaderboards in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/student"
)

const rankingsPrefix = "lophoc:rankings:"

// RankingsCache stores each classroom's full leaderboard as one JSON value with a TTL.
type RankingsCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ student.RankingsCache = (*RankingsCache)(nil) // interface compliance check

func NewClient(conf *core.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
}

func NewRankingsCache(client *redis.Client, conf *core.Config) *RankingsCache {
	return &RankingsCache{client: client, ttl: conf.Redis.RankingsTTL}
}

func rankingsKey(classroomID string) string {
	return rankingsPrefix + classroomID
}

func (c *RankingsCache) GetRankings(ctx context.Context, classroomID string) ([]student.RankingEntry, error) {
	data, err := c.client.Get(ctx, rankingsKey(classroomID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, student.ErrCacheMiss
		}
		return nil, errors.Wrap(err, "getting cached rankings")
	}

	var entries []student.RankingEntry
	if err = json.Unmarshal(data, &entries); err != nil {
		return nil, errors.Wrap(err, "decoding cached rankings")
	}
	return entries, nil
}

func (c *RankingsCache) SetRankings(ctx context.Context, classroomID string, entries []student.RankingEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return errors.Wrap(err, "encoding rankings")
	}
	return errors.Wrap(c.client.Set(ctx, rankingsKey(classroomID), data, c.ttl).Err(), "caching rankings")
}

func (c *RankingsCache) InvalidateRankings(ctx context.Context, classroomID string) error {
	return errors.Wrap(c.client.Del(ctx, rankingsKey(classroomID)).Err(), "invalidating rankings")
}

// Ping checks the connection.
func (c *RankingsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
