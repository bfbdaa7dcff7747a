package api

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "board:"

// RedisDeduper remembers accepted idempotency keys per board in redis, so a replayed
// command is reported as a duplicate by every instance.
type RedisDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDeduper(client *redis.Client, ttl time.Duration) *RedisDeduper {
	return &RedisDeduper{client: client, ttl: ttl}
}

func dedupeKey(boardID, key string) string {
	return dedupeKeyPrefix + boardID + ":cmd:" + key
}

// Remove forgets key so a rejected command can be resubmitted.
func (r *RedisDeduper) Remove(ctx context.Context, boardID, key string) error {
	return r.client.Del(ctx, dedupeKey(boardID, key)).Err()
}

// AddMany claims every key with SETNX in one round trip. added[i] reports whether keys[i]
// was new. A key repeated within the batch is only added once. On error, added holds the
// claims that did succeed so the caller can release them.
func (r *RedisDeduper) AddMany(ctx context.Context, boardID string, keys []string) ([]bool, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	claims := make([]*redis.BoolCmd, len(keys))
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, key := range keys {
			claims[i] = pipe.SetNX(ctx, dedupeKey(boardID, key), 1, r.ttl)
		}
		return nil
	})
	added := make([]bool, len(keys))
	for i, claim := range claims {
		ok, cerr := claim.Result()
		if cerr != nil {
			if err == nil {
				err = cerr
			}
			continue
		}
		added[i] = ok
	}
	return added, err
}
