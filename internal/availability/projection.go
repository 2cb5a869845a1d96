// Package availability maintains a best-effort, per-show projection of seat
// state as three redis sets (available/locked/booked). It is derived data:
// rebuildable from the booking store and the lock entries, and never
// consulted as a source of truth.
package availability

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/eventura/booking-service/internal/booking"
)

type RedisProjection struct {
	client *redis.Client
}

func NewRedisProjection(client *redis.Client) *RedisProjection {
	return &RedisProjection{client: client}
}

func setKey(showID, state string) string {
	return "seats:" + showID + ":" + state
}

// MarkLocked moves seats from available to locked.
func (p *RedisProjection) MarkLocked(ctx context.Context, showID string, seatIDs []string) error {
	return p.move(ctx, showID, seatIDs, "available", "locked")
}

// MarkBooked moves seats from locked to booked.
func (p *RedisProjection) MarkBooked(ctx context.Context, showID string, seatIDs []string) error {
	return p.move(ctx, showID, seatIDs, "locked", "booked")
}

// MarkReleased moves seats from locked back to available.
func (p *RedisProjection) MarkReleased(ctx context.Context, showID string, seatIDs []string) error {
	return p.move(ctx, showID, seatIDs, "locked", "available")
}

func (p *RedisProjection) move(ctx context.Context, showID string, seatIDs []string, from, to string) error {
	if len(seatIDs) == 0 {
		return nil
	}
	members := make([]interface{}, len(seatIDs))
	for i, s := range seatIDs {
		members[i] = s
	}
	if err := p.client.SRem(ctx, setKey(showID, from), members...).Err(); err != nil {
		return errors.Wrapf(err, "removing seats from %s set", from)
	}
	if err := p.client.SAdd(ctx, setKey(showID, to), members...).Err(); err != nil {
		return errors.Wrapf(err, "adding seats to %s set", to)
	}
	return nil
}

// Snapshot returns the current projection for a show. Callers needing
// authoritative state must ask the seat authority or the booking store.
func (p *RedisProjection) Snapshot(ctx context.Context, showID string) (*booking.SeatMap, error) {
	available, err := p.client.SMembers(ctx, setKey(showID, "available")).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading available set")
	}
	locked, err := p.client.SMembers(ctx, setKey(showID, "locked")).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading locked set")
	}
	booked, err := p.client.SMembers(ctx, setKey(showID, "booked")).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading booked set")
	}
	return &booking.SeatMap{Available: available, Locked: locked, Booked: booked}, nil
}
