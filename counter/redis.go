package counter

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis shares the counter across processes and survives restarts, so
// auto-prefixed caches created by different replicas never share a namespace.
type Redis struct {
	rdb redis.UniversalClient
	key string
}

var _ Counter = (*Redis)(nil)

// NewRedis stores the counter under "layercache:counter:<name>".
func NewRedis(client redis.UniversalClient, name string) *Redis {
	return &Redis{rdb: client, key: "layercache:counter:" + name}
}

func (r *Redis) Next(ctx context.Context) (uint64, error) {
	v, err := r.rdb.Incr(ctx, r.key).Uint64()
	if err != nil {
		return 0, fmt.Errorf("redis counter incr: %w", err)
	}
	// INCR yields 1 on first use; align with Local which starts at 0.
	return v - 1, nil
}
