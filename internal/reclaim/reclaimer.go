// Package reclaim runs the periodic sweep that cancels abandoned PENDING
// bookings and releases their held inventory.
package reclaim

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/eventura/booking-service/internal/observability"
)

// Sweeper is the compensation entrypoint, implemented by the booking service.
type Sweeper interface {
	CancelStalePending(ctx context.Context, cutoff time.Time) (int, error)
}

type Reclaimer struct {
	sweeper        Sweeper
	pendingTimeout time.Duration
	interval       time.Duration
	logger         observability.Logger
	inFlight       atomic.Bool
}

func NewReclaimer(sweeper Sweeper, pendingTimeout, interval time.Duration, logger observability.Logger) *Reclaimer {
	return &Reclaimer{
		sweeper:        sweeper,
		pendingTimeout: pendingTimeout,
		interval:       interval,
		logger:         logger,
	}
}

// Run sweeps on a fixed period until the context is cancelled.
func (r *Reclaimer) Run(ctx context.Context) {
	r.logger.WithFields(map[string]interface{}{
		"pending_timeout": r.pendingTimeout.String(),
		"interval":        r.interval.String(),
	}).Info("reclaimer started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reclaimer stopped")
			return
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// Sweep cancels everything PENDING since before now minus the pending
// timeout. At most one sweep runs per process at a time; redundant sweeps
// across processes are harmless because the query only matches PENDING rows.
func (r *Reclaimer) Sweep(ctx context.Context) {
	if !r.inFlight.CompareAndSwap(false, true) {
		r.logger.Warn("sweep already in flight, skipping tick")
		return
	}
	defer r.inFlight.Store(false)

	cutoff := time.Now().Add(-r.pendingTimeout)
	count, err := r.sweeper.CancelStalePending(ctx, cutoff)
	if err != nil {
		r.logger.WithError(err).Error("stale booking sweep failed")
		return
	}
	if count > 0 {
		r.logger.WithField("count", count).Info("stale bookings reclaimed")
	}
}
