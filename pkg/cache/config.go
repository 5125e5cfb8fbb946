package cache

import (
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisOption configures NewRedisCounter.
type RedisOption func(*redisSettings)

type redisSettings struct {
	addr        string
	password    string
	db          int
	prefix      string
	poolSize    int
	minIdle     int
	dialTimeout time.Duration
	pingTimeout time.Duration
}

func defaultRedisSettings() *redisSettings {
	return &redisSettings{
		addr:        "localhost:6379",
		prefix:      "proscalper",
		poolSize:    10,
		minIdle:     2,
		dialTimeout: 5 * time.Second,
		pingTimeout: 5 * time.Second,
	}
}

func (s *redisSettings) clientOptions() *redis.Options {
	return &redis.Options{
		Addr:         s.addr,
		Password:     s.password,
		DB:           s.db,
		PoolSize:     s.poolSize,
		MinIdleConns: s.minIdle,
		DialTimeout:  s.dialTimeout,
	}
}

// WithRedisAddr sets host and port. Empty host or zero port keep the default.
func WithRedisAddr(host string, port int) RedisOption {
	return func(s *redisSettings) {
		h, p, _ := net.SplitHostPort(s.addr)
		if host != "" {
			h = host
		}
		if port > 0 {
			p = strconv.Itoa(port)
		}
		s.addr = net.JoinHostPort(h, p)
	}
}

// WithRedisAuth sets the password and logical database.
func WithRedisAuth(password string, db int) RedisOption {
	return func(s *redisSettings) {
		s.password = password
		s.db = db
	}
}

// WithRedisPrefix namespaces every key.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *redisSettings) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithRedisPool sizes the connection pool.
func WithRedisPool(size, minIdle int) RedisOption {
	return func(s *redisSettings) {
		if size > 0 {
			s.poolSize = size
		}
		if minIdle >= 0 {
			s.minIdle = minIdle
		}
	}
}

// WithRedisPingTimeout bounds the connectivity check done at construction.
func WithRedisPingTimeout(d time.Duration) RedisOption {
	return func(s *redisSettings) {
		if d > 0 {
			s.pingTimeout = d
		}
	}
}
