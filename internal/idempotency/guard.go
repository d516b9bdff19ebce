// Package idempotency lets a client retry a toggle without flipping the
// habit twice. A request carrying an Idempotency-Key is executed at most
// once per key; repeats are answered with the stored outcome.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"habittracker/pkg/metrics"
)

const (
	keyPrefix = "idem:toggle"

	// bounds the write that settles a key after fn returns
	settleTimeout = 2 * time.Second

	statePending   = "pending"
	stateCompleted = "1"
	stateCleared   = "0"
)

// ErrInProgress means another request with the same key has not finished yet.
var ErrInProgress = errors.New("request with this idempotency key is in progress")

type Guard struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewGuard returns a guard storing outcomes for ttl. A nil client disables
// the guard and every call runs.
func NewGuard(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Guard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Guard{rdb: rdb, ttl: ttl, logger: logger}
}

// Toggle runs fn once for (userID, habitID, key) and returns its result.
// replayed is true when the result came from an earlier call. If Redis
// cannot be reached or read, fn runs unguarded.
func (g *Guard) Toggle(ctx context.Context, userID, habitID int64, key string, fn func() (bool, error)) (completed, replayed bool, err error) {
	if g == nil || g.rdb == nil || key == "" {
		completed, err = fn()
		return completed, false, err
	}

	redisKey := fmt.Sprintf("%s:%d:%d:%s", keyPrefix, userID, habitID, key)

	acquired, err := g.rdb.SetNX(ctx, redisKey, statePending, g.ttl).Result()
	if err != nil {
		g.logger.Warn("Idempotency check failed, allowing request",
			zap.String("key", redisKey),
			zap.Error(err),
		)
		completed, err = fn()
		return completed, false, err
	}

	if !acquired {
		var answered bool
		completed, replayed, answered, err = g.replay(ctx, redisKey)
		if answered {
			return completed, replayed, err
		}
		completed, err = fn()
		return completed, false, err
	}

	completed, err = fn()

	// The request may be cancelled by now; the key must still be settled or
	// retries would see it pending until it expires.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if err != nil {
		// Let the client retry a failed attempt.
		if delErr := g.rdb.Del(settleCtx, redisKey).Err(); delErr != nil {
			g.logger.Warn("Failed to release idempotency key", zap.String("key", redisKey), zap.Error(delErr))
		}
		return false, false, err
	}

	state := stateCleared
	if completed {
		state = stateCompleted
	}
	if setErr := g.rdb.Set(settleCtx, redisKey, state, g.ttl).Err(); setErr != nil {
		g.logger.Warn("Failed to store idempotent result", zap.String("key", redisKey), zap.Error(setErr))
	}
	return completed, false, nil
}

// replay answers from an existing key. ok is false when the key could not
// be read and the caller should run unguarded.
func (g *Guard) replay(ctx context.Context, redisKey string) (completed, replayed, ok bool, err error) {
	state, err := g.rdb.Get(ctx, redisKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// Released between SETNX and GET: the first attempt failed.
		return false, false, true, ErrInProgress
	case err != nil:
		g.logger.Warn("Idempotency replay failed, allowing request",
			zap.String("key", redisKey),
			zap.Error(err),
		)
		return false, false, false, nil
	}

	switch state {
	case stateCompleted, stateCleared:
		metrics.IncrementIdempotentReplay()
		g.logger.Info("Replayed toggle from idempotency key", zap.String("key", redisKey))
		return state == stateCompleted, true, true, nil
	default:
		return false, false, true, ErrInProgress
	}
}
