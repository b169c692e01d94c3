package cache

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const winsKey = "leaderboard/wins"

// Leaderboard tracks career wins across games in a Redis ZSET.
type Leaderboard interface {
	RecordWin(ctx context.Context, playerID string) error
	Top(ctx context.Context, limit int) ([]LeaderboardEntry, error)
	Rank(ctx context.Context, playerID string) (int64, error)
}

// LeaderboardEntry is a single ranked row.
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Wins     int    `json:"wins"`
	Rank     int    `json:"rank"`
}

type leaderboard struct {
	client *redis.Client
}

// NewLeaderboard creates a Redis-backed leaderboard.
func NewLeaderboard(client *redis.Client) Leaderboard {
	return &leaderboard{client: client}
}

func (l *leaderboard) RecordWin(ctx context.Context, playerID string) error {
	return l.client.ZIncrBy(ctx, winsKey, 1, playerID).Err()
}

func (l *leaderboard) Top(ctx context.Context, limit int) ([]LeaderboardEntry, error) {
	results, err := l.client.ZRevRangeWithScores(ctx, winsKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, z := range results {
		entries[i] = LeaderboardEntry{
			PlayerID: z.Member.(string),
			Wins:     int(z.Score),
			Rank:     i + 1,
		}
	}
	return entries, nil
}

func (l *leaderboard) Rank(ctx context.Context, playerID string) (int64, error) {
	rank, err := l.client.ZRevRank(ctx, winsKey, playerID).Result()
	if err == redis.Nil {
		return -1, nil
	}
	return rank + 1, err // 1-indexed
}
