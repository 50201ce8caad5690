package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// AuthError signals a missing, expired or rejected credential. The caller is
// expected to retry after re-authentication.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %s", e.Reason)
}

// TokenProvider supplies the bearer credential for remote catalog calls.
// Invalidate drops any locally cached value so the next Token call
// re-resolves it.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// StaticTokenProvider serves a fixed token from configuration.
type StaticTokenProvider struct {
	token string
}

func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

func (p *StaticTokenProvider) Token(ctx context.Context) (string, error) {
	if p.token == "" {
		return "", &AuthError{Reason: "no access token configured"}
	}
	return p.token, nil
}

// Invalidate is a no-op: a static token cannot be re-resolved.
func (p *StaticTokenProvider) Invalidate() {}

// RedisTokenProvider reads the bearer token from a Redis key maintained by an
// external refresher process, caching it in memory for a short interval.
type RedisTokenProvider struct {
	rdb      *redis.Client
	key      string
	cacheTTL time.Duration

	mu      sync.Mutex
	cached  string
	expires time.Time
}

// NewRedisTokenProvider creates a provider backed by the given Redis instance.
func NewRedisTokenProvider(addr, password string, db int, key string, cacheTTL time.Duration) (*RedisTokenProvider, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisTokenProvider{
		rdb:      rdb,
		key:      key,
		cacheTTL: cacheTTL,
	}, nil
}

func (p *RedisTokenProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != "" && time.Now().Before(p.expires) {
		return p.cached, nil
	}

	token, err := p.rdb.Get(ctx, p.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", &AuthError{Reason: "no access token available"}
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token from redis: %w", err)
	}

	p.cached = token
	p.expires = time.Now().Add(p.cacheTTL)
	return token, nil
}

// Invalidate drops the in-memory copy; the Redis value itself is owned by the
// external refresher.
func (p *RedisTokenProvider) Invalidate() {
	p.mu.Lock()
	p.cached = ""
	p.expires = time.Time{}
	p.mu.Unlock()
}

// Close closes the Redis connection.
func (p *RedisTokenProvider) Close() error {
	return p.rdb.Close()
}
