package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/eventura/booking-service/internal/domain"
)

// Store is the booking persistence port.
type Store interface {
	Create(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error
	FindByShowAndStatus(ctx context.Context, showID uuid.UUID, status domain.BookingStatus) ([]domain.Booking, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error)
	FindByUserAndStatuses(ctx context.Context, userID uuid.UUID, statuses []domain.BookingStatus) ([]domain.Booking, error)
	FindStalePending(ctx context.Context, cutoff time.Time) ([]domain.Booking, error)
}

// SeatAuthority is the ledger of record for seat state. Calls are
// synchronous and unretried; conflicts surface as domain.ErrConflict and
// anything else as domain.ErrUpstream.
type SeatAuthority interface {
	Reserve(ctx context.Context, showID, hallID uuid.UUID, seatIDs []string) error
	Finalize(ctx context.Context, showID, hallID uuid.UUID, seatIDs []string) error
	Release(ctx context.Context, showID, hallID uuid.UUID, seatIDs []string) error
}

// SeatLock is the transient per-seat mutual exclusion primitive.
type SeatLock interface {
	TryAcquire(ctx context.Context, showID string, seatIDs []string, holder string) (bool, error)
	Release(ctx context.Context, showID string, seatIDs []string, holder string) error
	HeldBy(ctx context.Context, showID, holder string) ([]string, error)
	AllHeld(ctx context.Context, showID string) ([]string, error)
}

// SeatMap is a point-in-time view of a show's seat sets.
type SeatMap struct {
	Available []string
	Locked    []string
	Booked    []string
}

// Projection is the best-effort availability cache. Every mutation here is
// tolerated to fail; drift self-heals on the next move of the same seat.
type Projection interface {
	MarkLocked(ctx context.Context, showID string, seatIDs []string) error
	MarkBooked(ctx context.Context, showID string, seatIDs []string) error
	MarkReleased(ctx context.Context, showID string, seatIDs []string) error
	Snapshot(ctx context.Context, showID string) (*SeatMap, error)
}

// Publisher emits lifecycle notifications. Publish failures never fail the
// booking operation that triggered them.
type Publisher interface {
	PublishNotification(ctx context.Context, n Notification) error
}

type ShowInfo struct {
	MovieID   uuid.UUID
	StartTime time.Time
}

// Metadata supplies display data for notification enrichment. Lookups are
// best-effort; errors degrade the enriched fields and nothing else.
type Metadata interface {
	Show(ctx context.Context, showID uuid.UUID) (*ShowInfo, error)
	MovieTitle(ctx context.Context, movieID uuid.UUID) (string, error)
	HallName(ctx context.Context, hallID uuid.UUID) (string, error)
}
