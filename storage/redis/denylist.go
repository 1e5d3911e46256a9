package redisstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/mzalendo/daftari/core/session"
)

const denylistKeyPrefix = "denylist:jti:"

// NewClient returns a configured go-redis client from a URL
// (e.g. redis://localhost:6379/0).
func NewClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

type denylist struct {
	client *redis.Client
}

var _ session.TokenDenylist = (*denylist)(nil)

// NewDenylist returns a session.TokenDenylist backed by Redis. Entries carry
// a TTL so they vanish once the revoked token would have expired anyway.
func NewDenylist(client *redis.Client) session.TokenDenylist {
	return &denylist{client: client}
}

func (dl *denylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil // token already expired, nothing to shadow
	}
	return dl.client.Set(ctx, denylistKeyPrefix+jti, "1", ttl).Err()
}

func (dl *denylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := dl.client.Exists(ctx, denylistKeyPrefix+jti).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
