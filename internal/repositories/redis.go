package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/tempo/internal/models"
	"github.com/desertthunder/tempo/internal/shared"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "tempo:session:"

// RedisTokenStore implements [models.TokenStore] with one hash per session.
type RedisTokenStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// OpenRedis connects to redis and verifies the connection with a ping.
func OpenRedis(ctx context.Context, cfg shared.RedisConfig, prefix string, ttl time.Duration) (*RedisTokenStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisTokenStore(client, prefix, ttl), nil
}

// NewRedisTokenStore wraps an existing client. A zero ttl stores keys without expiry.
func NewRedisTokenStore(client *redis.Client, prefix string, ttl time.Duration) *RedisTokenStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisTokenStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisTokenStore) key(sid string) string {
	return s.prefix + sid
}

func (s *RedisTokenStore) Get(ctx context.Context, sid string) (models.TokenPair, error) {
	data, err := s.client.HGetAll(ctx, s.key(sid)).Result()
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to read session tokens: %w", err)
	}
	if len(data) == 0 {
		return models.TokenPair{}, notFound(sid)
	}

	pair := models.TokenPair{
		AccessToken:  data["access_token"],
		RefreshToken: data["refresh_token"],
	}
	if v := data["expires_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return models.TokenPair{}, fmt.Errorf("invalid expires_at for session %s: %w", sid, err)
		}
		pair.ExpiresAt = t
	}
	return pair, nil
}

// Put replaces the session hash in one transaction and refreshes its expiry.
func (s *RedisTokenStore) Put(ctx context.Context, sid string, pair models.TokenPair) error {
	expiresAt := ""
	if !pair.ExpiresAt.IsZero() {
		expiresAt = pair.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}

	key := s.key(sid)
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, key)
		p.HSet(ctx, key,
			"access_token", pair.AccessToken,
			"refresh_token", pair.RefreshToken,
			"expires_at", expiresAt,
		)
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to store session tokens: %w", err)
	}
	return nil
}

func (s *RedisTokenStore) Delete(ctx context.Context, sid string) error {
	if err := s.client.Del(ctx, s.key(sid)).Err(); err != nil {
		return fmt.Errorf("failed to delete session tokens: %w", err)
	}
	return nil
}

// Close closes the redis connection
func (s *RedisTokenStore) Close() error {
	return s.client.Close()
}
