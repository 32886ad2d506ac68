package querylog

import (
	"context"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RedisStore keeps the most recent entries in a Redis list, newest first.
// Multiple processes may share the same list.
type RedisStore struct {
	client redis.Cmdable
	key    string
	size   int
}

// NewRedisStore returns a RedisStore which keeps up to size entries in the list key. It panics if size < 1.
func NewRedisStore(client redis.Cmdable, key string, size int) *RedisStore {
	if size < 1 {
		panic("query log size must be at least 1")
	}

	return &RedisStore{client: client, key: key, size: size}
}

// Push implements the Store interface.
func (s *RedisStore) Push(ctx context.Context, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "can't encode query log entry")
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, s.key, raw)
		pipe.LTrim(ctx, s.key, 0, int64(s.size-1))

		return nil
	})

	return errors.Wrapf(err, "can't push query log entry to %q", s.key)
}

// Recent implements the Store interface.
func (s *RedisStore) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, nil
	}

	raws, err := s.client.LRange(ctx, s.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "can't read query log from %q", s.key)
	}

	entries := make([]Entry, 0, len(raws))
	for _, raw := range raws {
		var e Entry
		if err := json.UnmarshalFromString(raw, &e); err != nil {
			return nil, errors.Wrap(err, "can't decode query log entry")
		}

		entries = append(entries, e)
	}

	return entries, nil
}
