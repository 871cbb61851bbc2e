package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each user's notifications in a capped redis list.
// Lists expire ttl after their last push, so Trim has nothing left to do.
type RedisStore struct {
	rdb   *redis.Client
	limit int64
	ttl   time.Duration
}

func NewRedisStore(rdb *redis.Client, limit int, ttl time.Duration) *RedisStore {
	if limit <= 0 {
		limit = 50
	}
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &RedisStore{rdb: rdb, limit: int64(limit), ttl: ttl}
}

func key(userID string) string {
	return fmt.Sprintf("notifications:%s", userID)
}

func (s *RedisStore) Push(ctx context.Context, n *Notification) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshalling notification: %w", err)
	}

	k := key(n.UserID)
	if _, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, k, raw)
		pipe.LTrim(ctx, k, 0, s.limit-1)
		pipe.Expire(ctx, k, s.ttl)
		return nil
	}); err != nil {
		return fmt.Errorf("pushing notification: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]*Notification, error) {
	raws, err := s.rdb.LRange(ctx, key(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}

	result := make([]*Notification, 0, len(raws))
	for _, raw := range raws {
		var n Notification
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return nil, fmt.Errorf("unmarshalling notification: %w", err)
		}
		result = append(result, &n)
	}
	return result, nil
}

func (s *RedisStore) Trim(context.Context, time.Time) (int, error) {
	return 0, nil
}
