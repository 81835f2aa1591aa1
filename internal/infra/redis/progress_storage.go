package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// ProgressStorage keeps one user's progress entries in Redis:
//
//	GET/SET progress:{userID}:xp
//	GET/SET progress:{userID}:badges
//
// Keys carry no TTL; progress is durable until reset.
type ProgressStorage struct {
	client *redis.Client
	userID string
}

func NewProgressStorage(client *redis.Client, userID string) *ProgressStorage {
	return &ProgressStorage{client: client, userID: userID}
}

func (s *ProgressStorage) Load(ctx context.Context, key string) (string, bool, error) {
	value, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *ProgressStorage) Save(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, 0).Err()
}

func (s *ProgressStorage) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

func (s *ProgressStorage) key(key string) string {
	return "progress:" + s.userID + ":" + key
}
