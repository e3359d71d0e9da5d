package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisTTL = 24 * time.Hour

// RedisStore keeps each conversation as a capped Redis list. Entries expire a day after the last turn.
type RedisStore struct {
	client   redis.UniversalClient
	maxTurns int
	prefix   string
	now      func() time.Time
}

func NewRedisStore(client redis.UniversalClient, maxTurns int) *RedisStore {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &RedisStore{
		client:   client,
		maxTurns: maxTurns,
		prefix:   "agent:conversation:",
		now:      time.Now,
	}
}

func (s *RedisStore) key(conversationID string) string {
	return s.prefix + conversationID
}

func (s *RedisStore) Append(ctx context.Context, conversationID string, role Role, content string) error {
	data, err := json.Marshal(Turn{Role: role, Content: content, Timestamp: s.now()})
	if err != nil {
		return err
	}

	key := s.key(conversationID)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	pipe.Expire(ctx, key, redisTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) ([]Turn, error) {
	raw, err := s.client.LRange(ctx, s.key(conversationID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("load turns: %w", err)
	}

	turns := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var t Turn
		if err := json.Unmarshal([]byte(item), &t); err != nil {
			return nil, fmt.Errorf("decode turn: %w", err)
		}
		turns = append(turns, t)
	}
	return turns, nil
}

func (s *RedisStore) Clear(ctx context.Context, conversationID string) error {
	return s.client.Del(ctx, s.key(conversationID)).Err()
}
