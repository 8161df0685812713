package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/tipoca/internal/models"
	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix        = "session:"
	accountSessionKeyPrefix = "account_sessions:"
)

// RedisSessionStore keeps session tokens in Redis. Each token maps to its
// owner and each owner has a set of its tokens for bulk revocation.
type RedisSessionStore struct {
	client *redis.Client
}

func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func sessionKey(token string) string        { return sessionKeyPrefix + token }
func accountSessionsKey(owner string) string { return accountSessionKeyPrefix + owner }

func (s *RedisSessionStore) Save(ctx context.Context, token, ownerID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey(token), ownerID, 0)
		pipe.SAdd(ctx, accountSessionsKey(ownerID), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session token: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Find(ctx context.Context, token string) (string, error) {
	owner, err := s.client.Get(ctx, sessionKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return "", models.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read session token: %w", err)
	}
	return owner, nil
}

func (s *RedisSessionStore) DeleteOne(ctx context.Context, token string) error {
	owner, err := s.Find(ctx, token)
	if errors.Is(err, models.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey(token))
		pipe.SRem(ctx, accountSessionsKey(owner), token)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}

// deleteAllScript removes every session of an owner together with its
// index set. Running server side keeps a concurrent Save from landing
// between the read and the delete.
var deleteAllScript = redis.NewScript(`
local tokens = redis.call('SMEMBERS', KEYS[1])
for _, t in ipairs(tokens) do
	redis.call('DEL', ARGV[1] .. t)
end
redis.call('DEL', KEYS[1])
return #tokens
`)

func (s *RedisSessionStore) DeleteAllFor(ctx context.Context, ownerID string) (int64, error) {
	n, err := deleteAllScript.Run(ctx, s.client, []string{accountSessionsKey(ownerID)}, sessionKeyPrefix).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to delete session tokens: %w", err)
	}
	return n, nil
}

// pruneScript drops index entries whose session key no longer exists.
var pruneScript = redis.NewScript(`
local removed = 0
for _, t in ipairs(redis.call('SMEMBERS', KEYS[1])) do
	if redis.call('EXISTS', ARGV[1] .. t) == 0 then
		redis.call('SREM', KEYS[1], t)
		removed = removed + 1
	end
end
return removed
`)

// PruneDangling walks every owner's index set and removes tokens whose
// session key is gone, for example after eviction under memory pressure.
// Live sessions are never touched.
func (s *RedisSessionStore) PruneDangling(ctx context.Context) (int64, error) {
	var removed int64
	iter := s.client.Scan(ctx, 0, accountSessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n, err := pruneScript.Run(ctx, s.client, []string{iter.Val()}, sessionKeyPrefix).Int64()
		if err != nil {
			return removed, fmt.Errorf("failed to prune %s: %w", iter.Val(), err)
		}
		removed += n
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("failed to scan session indexes: %w", err)
	}
	return removed, nil
}

func (s *RedisSessionStore) CountFor(ctx context.Context, ownerID string) (int64, error) {
	n, err := s.client.SCard(ctx, accountSessionsKey(ownerID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count session tokens: %w", err)
	}
	return n, nil
}

// HealthCheck pings the Redis server.
func (s *RedisSessionStore) HealthCheck(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}
