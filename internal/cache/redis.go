package cache

import (
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/rs/zerolog/log"
)

// Redis is a Cache backed by a Redis connection pool. Transport errors
// degrade to cache misses; the classifier recomputes on miss so a flaky
// cache only costs latency.
type Redis struct {
	pool   *redis.Pool
	prefix string
}

// NewRedis creates a Redis cache against addr. prefix namespaces the keys.
func NewRedis(addr, prefix string) *Redis {
	pool := &redis.Pool{
		MaxIdle:     4,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr,
				redis.DialConnectTimeout(2*time.Second),
				redis.DialReadTimeout(2*time.Second),
				redis.DialWriteTimeout(2*time.Second))
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return &Redis{pool: pool, prefix: prefix}
}

// Get implements Cache.
func (r *Redis) Get(key string) ([]byte, bool) {
	conn := r.pool.Get()
	defer conn.Close()

	value, err := redis.Bytes(conn.Do("GET", r.prefix+key))
	if err != nil {
		if err != redis.ErrNil {
			log.Warn().Err(err).Str("key", key).Msg("Redis GET failed, treating as miss")
		}
		return nil, false
	}
	return value, true
}

// Set implements Cache.
func (r *Redis) Set(key string, value []byte, ttl time.Duration) {
	conn := r.pool.Get()
	defer conn.Close()

	seconds := int(ttl.Seconds())
	if seconds < 1 {
		seconds = 1
	}
	if _, err := conn.Do("SETEX", r.prefix+key, seconds, value); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis SETEX failed")
	}
}

// Invalidate implements Cache.
func (r *Redis) Invalidate(key string) {
	conn := r.pool.Get()
	defer conn.Close()

	if _, err := conn.Do("DEL", r.prefix+key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Redis DEL failed")
	}
}

// Close releases the connection pool.
func (r *Redis) Close() error {
	return r.pool.Close()
}
