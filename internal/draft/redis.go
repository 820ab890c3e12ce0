package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/nurpe/snowops-agreements/internal/model"
)

const keyPrefix = "agreements:draft:"

// RedisStore keeps each draft as a JSON value that expires after ttl.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func draftKey(ownerID uuid.UUID) string {
	return keyPrefix + ownerID.String()
}

func (s *RedisStore) Save(ctx context.Context, d model.Draft) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKey(d.OwnerID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, ownerID uuid.UUID) (*model.Draft, error) {
	data, err := s.client.Get(ctx, draftKey(ownerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}
	var d model.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &d, nil
}

func (s *RedisStore) Delete(ctx context.Context, ownerID uuid.UUID) error {
	return s.client.Del(ctx, draftKey(ownerID)).Err()
}

func (s *RedisStore) ActiveTempKeys(ctx context.Context) (map[string]struct{}, error) {
	keys := map[string]struct{}{}
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		data, err := s.client.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var d model.Draft
		if err := json.Unmarshal(data, &d); err != nil {
			continue
		}
		if d.Attachment != nil && d.Attachment.Key != "" {
			keys[d.Attachment.Key] = struct{}{}
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}
