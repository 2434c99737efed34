package store

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	errs "github.com/singlecellvr/scvrprep/pkg/errors"
	"github.com/singlecellvr/scvrprep/pkg/observability"
)

// keyPrefix namespaces report keys in a shared Redis database.
const keyPrefix = "scvrprep:report:"

// RedisStore keeps reports as Redis string values.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to the Redis server at url (redis://host:port/db).
// Reports expire after ttl; zero keeps them forever.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse redis url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errs.Wrap(errs.ErrCodeIO, err, "connect to redis %s", opts.Addr)
	}
	return &RedisStore{client: client, ttl: ttl}, nil
}

// Name returns "redis".
func (s *RedisStore) Name() string { return "redis" }

// Put stores data with the store's TTL.
func (s *RedisStore) Put(ctx context.Context, id string, data []byte) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	err := RetryWithBackoff(ctx, func() error {
		return classify(s.client.Set(ctx, redisKey(id), data, s.ttl).Err())
	})
	if err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "store report %s", id)
	}
	observability.Store().OnStorePut(ctx, s.Name(), len(data))
	return nil
}

// Get fetches the report for id.
func (s *RedisStore) Get(ctx context.Context, id string) ([]byte, bool, error) {
	if err := ValidateID(id); err != nil {
		return nil, false, err
	}
	var data []byte
	err := RetryWithBackoff(ctx, func() error {
		var err error
		data, err = s.client.Get(ctx, redisKey(id)).Bytes()
		return classify(err)
	})
	if errors.Is(err, redis.Nil) {
		observability.Store().OnStoreMiss(ctx, s.Name())
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Wrap(errs.ErrCodeIO, err, "read report %s", id)
	}
	observability.Store().OnStoreHit(ctx, s.Name())
	return data, true, nil
}

// Delete removes the report for id.
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := s.client.Del(ctx, redisKey(id)).Err(); err != nil {
		return errs.Wrap(errs.ErrCodeIO, err, "delete report %s", id)
	}
	return nil
}

// Close closes the Redis connection pool.
func (s *RedisStore) Close() error { return s.client.Close() }

func redisKey(id string) string { return keyPrefix + id }

// classify marks network failures as retryable.
func classify(err error) error {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Retryable(err)
	}
	return err
}

// Ensure RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
