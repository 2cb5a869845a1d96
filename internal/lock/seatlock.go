// Package lock implements the distributed per-seat mutual exclusion
// primitive on redis. A lock entry is a plain key with a TTL; absence means
// the seat is free.
package lock

import (
	"context"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/eventura/booking-service/internal/observability"
)

const keyPrefix = "lock:"

type RedisSeatLock struct {
	client *redis.Client
	ttl    time.Duration
	logger observability.Logger
}

func NewRedisSeatLock(client *redis.Client, ttl time.Duration, logger observability.Logger) *RedisSeatLock {
	return &RedisSeatLock{client: client, ttl: ttl, logger: logger}
}

func lockKey(showID, seatID string) string {
	return keyPrefix + showID + ":" + seatID
}

func seatFromKey(key string) string {
	return key[strings.LastIndex(key, ":")+1:]
}

// TryAcquire attempts create-if-absent with TTL on each seat in order.
// All-or-nothing per call: on the first seat already held by someone else it
// releases only what this call acquired and reports false. An empty seat
// list trivially succeeds.
func (l *RedisSeatLock) TryAcquire(ctx context.Context, showID string, seatIDs []string, holder string) (bool, error) {
	var acquired []string
	for _, seatID := range seatIDs {
		ok, err := l.client.SetNX(ctx, lockKey(showID, seatID), holder, l.ttl).Result()
		if err != nil {
			l.rollback(ctx, showID, acquired, holder)
			return false, errors.Wrapf(err, "acquiring lock for seat %s", seatID)
		}
		if !ok {
			l.logger.WithFields(map[string]interface{}{
				"show_id": showID,
				"seat_id": seatID,
				"holder":  holder,
			}).Warn("seat already locked, rolling back this attempt")
			l.rollback(ctx, showID, acquired, holder)
			return false, nil
		}
		acquired = append(acquired, seatID)
	}
	return true, nil
}

func (l *RedisSeatLock) rollback(ctx context.Context, showID string, seatIDs []string, holder string) {
	if err := l.Release(ctx, showID, seatIDs, holder); err != nil {
		l.logger.WithError(err).WithField("show_id", showID).Error("rollback of partial acquisition failed")
	}
}

// Release deletes each seat's entry only if the current holder matches.
// Entries owned by someone else (a re-acquisition after expiry) and entries
// already gone are left untouched.
func (l *RedisSeatLock) Release(ctx context.Context, showID string, seatIDs []string, holder string) error {
	for _, seatID := range seatIDs {
		key := lockKey(showID, seatID)
		owner, err := l.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return errors.Wrapf(err, "reading lock owner for seat %s", seatID)
		}
		if owner != holder {
			l.logger.WithFields(map[string]interface{}{
				"show_id": showID,
				"seat_id": seatID,
				"holder":  holder,
				"owner":   owner,
			}).Warn("skipping release of seat not owned by holder")
			continue
		}
		if err := l.client.Del(ctx, key).Err(); err != nil {
			return errors.Wrapf(err, "releasing lock for seat %s", seatID)
		}
	}
	return nil
}

// HeldBy lists seats of the show currently locked by the given holder.
func (l *RedisSeatLock) HeldBy(ctx context.Context, showID, holder string) ([]string, error) {
	keys, err := l.scanShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	var seats []string
	for _, key := range keys {
		owner, err := l.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "reading lock owner")
		}
		if owner == holder {
			seats = append(seats, seatFromKey(key))
		}
	}
	return seats, nil
}

// AllHeld lists every locked seat of the show regardless of holder.
func (l *RedisSeatLock) AllHeld(ctx context.Context, showID string) ([]string, error) {
	keys, err := l.scanShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	seats := make([]string, 0, len(keys))
	for _, key := range keys {
		seats = append(seats, seatFromKey(key))
	}
	return seats, nil
}

func (l *RedisSeatLock) scanShow(ctx context.Context, showID string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	match := keyPrefix + showID + ":*"
	for {
		batch, next, err := l.client.Scan(ctx, cursor, match, 100).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "scanning locks for show %s", showID)
		}
		keys = append(keys, batch...)
		if next == 0 {
			return keys, nil
		}
		cursor = next
	}
}
