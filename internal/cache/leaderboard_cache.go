package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// LeaderboardCache mirrors session scores into a Redis ZSET per room. The
// session engine owns the authoritative scores; this mirror serves the
// host's live leaderboard reads.
type LeaderboardCache interface {
	SetScore(ctx context.Context, roomCode, studentID string, score int) error
	GetTop(ctx context.Context, roomCode string, limit int) ([]LeaderboardEntry, error)
	GetRank(ctx context.Context, roomCode, studentID string) (int64, error)
	Clear(ctx context.Context, roomCode string) error
}

// LeaderboardEntry is a single ranked row.
type LeaderboardEntry struct {
	StudentID string `json:"studentId"`
	Name      string `json:"name,omitempty"`
	Score     int    `json:"score"`
	Rank      int    `json:"rank"`
}

type leaderboardCache struct {
	client *redis.Client
}

// NewLeaderboardCache creates a new leaderboard cache.
func NewLeaderboardCache(client *redis.Client) LeaderboardCache {
	return &leaderboardCache{
		client: client,
	}
}

func (c *leaderboardCache) key(roomCode string) string {
	return fmt.Sprintf("room:%s:lb", roomCode)
}

func (c *leaderboardCache) SetScore(ctx context.Context, roomCode, studentID string, score int) error {
	return c.client.ZAdd(ctx, c.key(roomCode), redis.Z{
		Score:  float64(score),
		Member: studentID,
	}).Err()
}

func (c *leaderboardCache) GetTop(ctx context.Context, roomCode string, limit int) ([]LeaderboardEntry, error) {
	results, err := c.client.ZRevRangeWithScores(ctx, c.key(roomCode), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = LeaderboardEntry{
			StudentID: z.Member.(string),
			Score:     int(z.Score),
			Rank:      i + 1,
		}
	}
	return entries, nil
}

func (c *leaderboardCache) GetRank(ctx context.Context, roomCode, studentID string) (int64, error) {
	rank, err := c.client.ZRevRank(ctx, c.key(roomCode), studentID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}

func (c *leaderboardCache) Clear(ctx context.Context, roomCode string) error {
	return c.client.Del(ctx, c.key(roomCode)).Err()
}
