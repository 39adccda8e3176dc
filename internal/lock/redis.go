package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lease only if it still belongs to the caller,
// so a lease that expired and was re-acquired is never released by the
// previous holder.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`

// Redis is the cross-process locker: a SET NX lease with a TTL safety net
// against a crashed holder. Used when more than one API instance shares
// the document store.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	retry  time.Duration
}

// NewRedis connects a redis-backed locker.
func NewRedis(redisURL string) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisWithClient(client), nil
}

// NewRedisWithClient creates a locker from an existing Redis client.
func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		prefix: "reconcile:",
		ttl:    30 * time.Second,
		retry:  50 * time.Millisecond,
	}
}

func (r *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	token := newToken()
	leaseKey := r.prefix + key

	for {
		ok, err := r.client.SetNX(ctx, leaseKey, token, r.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
		case <-time.After(r.retry):
		}
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := r.client.Eval(ctx, releaseScript, []string{leaseKey}, token).Err(); err != nil {
			log.Printf("lock: release %s: %v", key, err)
		}
	}
	return release, nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func newToken() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
