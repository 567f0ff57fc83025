package submission

import (
	"context"
	"errors"
	"fmt"

	"tablebook/internal/shared/constants"

	"github.com/redis/go-redis/v9"
)

const maxAppendRetries = 5

// RedisCache stores the record list as one JSON string. Appends run in a
// WATCH/MULTI transaction so concurrent API requests do not drop records.
type RedisCache struct {
	client *redis.Client
	key    string

	// afterRead runs between the watched read and the commit (tests only)
	afterRead func()
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, key: constants.CACHE_KEY_SUBMISSIONS}
}

func (c *RedisCache) Append(ctx context.Context, rec Record) error {
	txf := func(tx *redis.Tx) error {
		stored, err := tx.Get(ctx, c.key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		data, err := appendRecord(stored, rec)
		if err != nil {
			return err
		}
		if c.afterRead != nil {
			c.afterRead()
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, c.key, data, 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxAppendRetries; i++ {
		err := c.client.Watch(ctx, txf, c.key)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return fmt.Errorf("redis cache append: %w", err)
	}
	return fmt.Errorf("redis cache append: %w after %d attempts", redis.TxFailedErr, maxAppendRetries)
}

func (c *RedisCache) List(ctx context.Context) ([]Record, error) {
	stored, err := c.client.Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis cache list: %w", err)
	}
	return decodeRecords(stored)
}
