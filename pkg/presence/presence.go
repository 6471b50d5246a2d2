// Package presence tracks which users are online in each room, in Redis
// sets shared by all gateway processes. Best effort only: failures are
// logged by callers and never interfere with the session lifecycle.
package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Tracker struct {
	rdb *redis.Client
}

func NewTracker(rdb *redis.Client) *Tracker {
	return &Tracker{rdb: rdb}
}

func setKey(roomID int64) string {
	return fmt.Sprintf("room:%d:online", roomID)
}

func (t *Tracker) Add(ctx context.Context, roomID int64, username string) error {
	return t.rdb.SAdd(ctx, setKey(roomID), username).Err()
}

func (t *Tracker) Remove(ctx context.Context, roomID int64, username string) error {
	return t.rdb.SRem(ctx, setKey(roomID), username).Err()
}

func (t *Tracker) Online(ctx context.Context, roomID int64) ([]string, error) {
	return t.rdb.SMembers(ctx, setKey(roomID)).Result()
}
