package rediscache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lophoc/core"
	"github.com/trezcool/lophoc/core/rank"
	"github.com/trezcool/lophoc/core/student"
)

// needs a running server: TEST_REDIS_ADDR=127.0.0.1:6379
func newTestCache(t *testing.T) *RankingsCache {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	conf := core.NewTestConfig()
	conf.Redis.Addr = addr
	conf.Redis.RankingsTTL = time.Minute

	client := NewClient(conf)
	t.Cleanup(func() { _ = client.Close() })
	c := NewRankingsCache(client, conf)
	require.NoError(t, c.Ping(context.Background()))
	return c
}

func TestRankingsCache(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()
	classroomID := uuid.NewString()

	_, err := c.GetRankings(ctx, classroomID)
	assert.Equal(t, student.ErrCacheMiss, err)

	entries := []student.RankingEntry{
		{Position: 1, StudentID: "a", Name: "Lan", TotalPoints: 120, Rank: rank.Gold},
		{Position: 2, StudentID: "b", Name: "Minh", TotalPoints: 40, Rank: rank.Bronze},
	}
	require.NoError(t, c.SetRankings(ctx, classroomID, entries))

	got, err := c.GetRankings(ctx, classroomID)
	require.NoError(t, err)
	assert.Equal(t, entries, got)

	require.NoError(t, c.InvalidateRankings(ctx, classroomID))
	_, err = c.GetRankings(ctx, classroomID)
	assert.Equal(t, student.ErrCacheMiss, err)
}
