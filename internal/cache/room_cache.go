package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RoomCache holds the Redis-side room indexes: the active-code reservation
// set and the host -> active room mapping. Code reservation uses SETNX so
// concurrent room creation cannot race a check-then-act gap; Mongo stays
// the source of truth for the room document itself.
type RoomCache interface {
	ReserveCode(ctx context.Context, code, roomID string) (bool, error)
	ReleaseCode(ctx context.Context, code string) error
	ClaimHost(ctx context.Context, hostID, code string) (bool, error)
	GetHostRoom(ctx context.Context, hostID string) (string, error)
	ReleaseHost(ctx context.Context, hostID string) error
}

type roomCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRoomCache creates a new room cache. Keys expire after 24h so crashed
// sessions do not pin codes forever.
func NewRoomCache(client *redis.Client) RoomCache {
	return &roomCache{
		client: client,
		ttl:    24 * time.Hour,
	}
}

func (c *roomCache) codeKey(code string) string {
	return fmt.Sprintf("room:code:%s", code)
}

func (c *roomCache) hostKey(hostID string) string {
	return fmt.Sprintf("room:host:%s", hostID)
}

func (c *roomCache) ReserveCode(ctx context.Context, code, roomID string) (bool, error) {
	return c.client.SetNX(ctx, c.codeKey(code), roomID, c.ttl).Result()
}

func (c *roomCache) ReleaseCode(ctx context.Context, code string) error {
	return c.client.Del(ctx, c.codeKey(code)).Err()
}

func (c *roomCache) ClaimHost(ctx context.Context, hostID, code string) (bool, error) {
	return c.client.SetNX(ctx, c.hostKey(hostID), code, c.ttl).Result()
}

func (c *roomCache) GetHostRoom(ctx context.Context, hostID string) (string, error) {
	code, err := c.client.Get(ctx, c.hostKey(hostID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return code, err
}

func (c *roomCache) ReleaseHost(ctx context.Context, hostID string) error {
	return c.client.Del(ctx, c.hostKey(hostID)).Err()
}
