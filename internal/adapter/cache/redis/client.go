// Package redis constructs the shared Redis client used for session lookup
// and the cross-instance presence store.
package redis

import (
	"github.com/redis/go-redis/v9"
)

func NewClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: addr,
	})
}
