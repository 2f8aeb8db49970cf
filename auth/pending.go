package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	pendingKeyPrefix  = "otp_pending_account_id:"
	attemptsKeyPrefix = "otp_attempts:"
)

// PendingStore maps a browser session to the account awaiting OTP verification.
type PendingStore interface {
	// Put records accountID for sessionID, replacing any earlier challenge and its attempt count.
	Put(ctx context.Context, sessionID string, accountID uint) error
	// Get returns ErrNoPendingChallenge when nothing is pending.
	Get(ctx context.Context, sessionID string) (uint, error)
	// IncrAttempts bumps and returns the verify attempt count for the challenge.
	IncrAttempts(ctx context.Context, sessionID string) (int64, error)
	Delete(ctx context.Context, sessionID string) error
}

// RedisPendingStore keeps pending challenges in Redis with a TTL.
type RedisPendingStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisPendingStore(rdb *redis.Client, ttl time.Duration) *RedisPendingStore {
	return &RedisPendingStore{rdb: rdb, ttl: ttl}
}

func (s *RedisPendingStore) Put(ctx context.Context, sessionID string, accountID uint) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, pendingKeyPrefix+sessionID, strconv.FormatUint(uint64(accountID), 10), s.ttl)
		pipe.Del(ctx, attemptsKeyPrefix+sessionID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: put pending otp: %w", ErrPersistence, err)
	}
	return nil
}

func (s *RedisPendingStore) Get(ctx context.Context, sessionID string) (uint, error) {
	raw, err := s.rdb.Get(ctx, pendingKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrNoPendingChallenge
	}
	if err != nil {
		return 0, fmt.Errorf("%w: get pending otp: %w", ErrPersistence, err)
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, ErrNoPendingChallenge
	}
	return uint(id), nil
}

func (s *RedisPendingStore) IncrAttempts(ctx context.Context, sessionID string) (int64, error) {
	key := attemptsKeyPrefix + sessionID
	var incr *redis.IntCmd
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: count otp attempt: %w", ErrPersistence, err)
	}
	return incr.Val(), nil
}

func (s *RedisPendingStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, pendingKeyPrefix+sessionID, attemptsKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("%w: delete pending otp: %w", ErrPersistence, err)
	}
	return nil
}
