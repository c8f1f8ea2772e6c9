package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Read-path cache keys invalidated on change.
const (
	keyStock = "stock:%s" // stock:{productID} -> cached stock count
	keyCart  = "cart:%s"  // cart:{userID} -> cached cart summary
)

const invalidateTimeout = 2 * time.Second

// RedisInvalidator deletes cached read-path entries when the underlying
// state changes. Invalidation is best-effort; cache entries also carry TTLs.
type RedisInvalidator struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisInvalidator creates an invalidator over a redis client.
func NewRedisInvalidator(addr string, logger *slog.Logger) *RedisInvalidator {
	return &RedisInvalidator{
		rdb:    redis.NewClient(&redis.Options{Addr: addr}),
		logger: logger,
	}
}

// Close releases the underlying client.
func (r *RedisInvalidator) Close() error {
	return r.rdb.Close()
}

func (r *RedisInvalidator) InventoryChanged(ctx context.Context, productIDs []string) {
	keys := make([]string, len(productIDs))
	for i, id := range productIDs {
		keys[i] = fmt.Sprintf(keyStock, id)
	}
	r.del(ctx, keys...)
}

func (r *RedisInvalidator) CartCleared(ctx context.Context, userID string) {
	r.del(ctx, fmt.Sprintf(keyCart, userID))
}

func (r *RedisInvalidator) del(ctx context.Context, keys ...string) {
	if len(keys) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, invalidateTimeout)
	defer cancel()

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		r.logger.Error("cache invalidation failed", "keys", keys, "error", err)
	}
}
