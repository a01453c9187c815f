package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisMu     sync.Mutex
)

// InitRedis connects the shared Redis client. Called once at boot with the
// configured address; tests point it at a miniredis instance instead.
func InitRedis(host string, port int, password string, db int) {
	redisMu.Lock()
	defer redisMu.Unlock()
	redisClient = redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(host, strconv.Itoa(port)),
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	// Ping to validate; ignore error to allow cacheless fallback paths.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = redisClient.Ping(ctx).Err()
}

// GetRedis returns the shared client, or nil when caching is disabled.
func GetRedis() *redis.Client {
	redisMu.Lock()
	defer redisMu.Unlock()
	return redisClient
}
