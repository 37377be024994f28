package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ble_gateway/internal/model"
	"ble_gateway/internal/repository"
	redisSvc "ble_gateway/internal/service/redis"
	"ble_gateway/internal/utils/random"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

type (
	// RedisStore keeps sessions as JSON values whose redis TTL matches expiry.
	RedisStore struct {
		redis *redisSvc.RedisService
		ttl   time.Duration
		now   func() time.Time
	}
)

func NewRedisStore(redis *redisSvc.RedisService, ttl time.Duration) *RedisStore {
	return &RedisStore{
		redis: redis,
		ttl:   ttl,
		now:   time.Now,
	}
}

func key(sessionID string) string {
	return keyPrefix + sessionID
}

func (s *RedisStore) Start(ctx context.Context, account string) (*model.Session, error) {
	if account == "" {
		return nil, errors.New("session: missing account")
	}

	for i := 0; i < repository.MaxSessionIDAttempts; i++ {
		id, err := random.String(model.SessionIDLength)
		if err != nil {
			return nil, err
		}

		sess := &model.Session{
			SessionID: id,
			Account:   model.AccountKey(account),
			Expires:   s.now().Add(s.ttl).Unix(),
		}
		data, err := json.Marshal(sess)
		if err != nil {
			return nil, fmt.Errorf("session: failed to marshal: %w", err)
		}

		ok, err := s.redis.SetNX(ctx, key(id), data, s.ttl)
		if err != nil {
			return nil, err
		}
		if ok {
			return sess, nil
		}
	}
	return nil, repository.ErrSessionIDExhausted
}

func (s *RedisStore) Lookup(ctx context.Context, sessionID string) (*model.Session, error) {
	if len(sessionID) != model.SessionIDLength {
		return nil, nil
	}

	val, err := s.redis.Get(ctx, key(sessionID))
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var sess model.Session
	if err := json.Unmarshal([]byte(val), &sess); err != nil {
		return nil, fmt.Errorf("session: failed to unmarshal: %w", err)
	}

	if sess.Expired(s.now()) {
		if err := s.redis.Del(ctx, key(sessionID)); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &sess, nil
}

func (s *RedisStore) DestroyAll(ctx context.Context) error {
	return s.redis.DelPattern(ctx, keyPrefix+"*")
}
