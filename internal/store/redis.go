package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis holds the shared client behind the submission queue and the
// review feed. Timeouts stay short so a dead redis degrades requests
// instead of hanging them.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to redis at addr.
func NewRedis(addr string) *Redis {
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})}
}

// Healthy reports whether redis answers a ping.
func (r *Redis) Healthy(ctx context.Context) bool {
	if r == nil || r.Client == nil {
		return false
	}
	return r.Client.Ping(ctx).Err() == nil
}

// Close releases the client's connections.
func (r *Redis) Close() error {
	if r == nil || r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
