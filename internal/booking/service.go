// Package booking owns the reservation lifecycle: lock acquisition, ledger
// updates, persistence and notification emission are sequenced here.
package booking

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/eventura/booking-service/internal/domain"
	"github.com/eventura/booking-service/internal/observability"
)

type Service struct {
	store      Store
	authority  SeatAuthority
	locks      SeatLock
	projection Projection
	publisher  Publisher
	metadata   Metadata
	logger     observability.Logger
	metrics    *observability.Metrics
}

func NewService(
	store Store,
	authority SeatAuthority,
	locks SeatLock,
	projection Projection,
	publisher Publisher,
	metadata Metadata,
	logger observability.Logger,
	metrics *observability.Metrics,
) *Service {
	return &Service{
		store:      store,
		authority:  authority,
		locks:      locks,
		projection: projection,
		publisher:  publisher,
		metadata:   metadata,
		logger:     logger,
		metrics:    metrics,
	}
}

// Create reserves the seats in the ledger and, only once that succeeded,
// persists a new PENDING booking with one item covering all seats. The
// reserve call runs before the insert so the local transaction never spans
// the network.
func (s *Service) Create(ctx context.Context, userID, showID, hallID uuid.UUID, seatIDs []string, totalAmount float64) (*domain.Booking, error) {
	if userID == uuid.Nil || showID == uuid.Nil {
		return nil, errors.Wrap(domain.ErrInvalidInput, "user and show are required")
	}
	if len(seatIDs) == 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "no seats requested")
	}
	if totalAmount < 0 {
		return nil, errors.Wrap(domain.ErrInvalidInput, "negative amount")
	}

	if err := s.authority.Reserve(ctx, showID, hallID, seatIDs); err != nil {
		return nil, err
	}

	b := domain.NewBooking(userID, showID, hallID, seatIDs, totalAmount)
	if err := s.store.Create(ctx, &b); err != nil {
		// The ledger holds seats with no booking row behind them. Free
		// them now rather than waiting for an operator.
		if relErr := s.authority.Release(ctx, showID, hallID, seatIDs); relErr != nil {
			s.logger.WithError(relErr).WithField("show_id", showID).Error("releasing ledger seats after failed insert")
		}
		return nil, err
	}

	s.metrics.BookingsCreated.Inc()
	s.logger.WithFields(map[string]interface{}{
		"booking_id": b.ID,
		"user_id":    userID,
		"show_id":    showID,
		"seats":      seatIDs,
		"amount":     totalAmount,
	}).Info("booking created")
	return &b, nil
}

// Confirm moves the booking to CONFIRMED, finalizes the seats in the ledger
// and emits BOOKING_CONFIRMED. Re-confirming a CONFIRMED booking is a no-op
// replay; confirming a CANCELLED one fails with ErrState. A ledger finalize
// failure after the local commit is surfaced to the caller; the committed
// status stands until corrected.
func (s *Service) Confirm(ctx context.Context, bookingID, hallID uuid.UUID) (*domain.Booking, error) {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == domain.StatusConfirmed {
		return b, nil
	}
	if err := b.Confirm(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, b.ID, domain.StatusConfirmed); err != nil {
		return nil, err
	}

	seats := b.Seats()
	if err := s.authority.Finalize(ctx, b.ShowID, hallID, seats); err != nil {
		s.logger.WithError(err).WithField("booking_id", b.ID).Error("ledger finalize failed after local commit")
		return nil, err
	}
	if err := s.projection.MarkBooked(ctx, b.ShowID.String(), seats); err != nil {
		s.logger.WithError(err).WithField("booking_id", b.ID).Warn("availability projection update failed")
	}

	s.metrics.BookingsConfirmed.Inc()
	s.logger.WithFields(map[string]interface{}{"booking_id": b.ID, "seats": seats}).Info("booking confirmed")
	s.notify(ctx, b, hallID, EventBookingConfirmed, "")
	return b, nil
}

// MarkPaymentSuccess confirms the booking on a successful payment callback.
func (s *Service) MarkPaymentSuccess(ctx context.Context, bookingID, hallID uuid.UUID) (*domain.Booking, error) {
	s.logger.WithField("booking_id", bookingID).Info("payment success reported")
	return s.Confirm(ctx, bookingID, hallID)
}

// Cancel moves the booking to CANCELLED, releases its seats in the ledger
// and emits BOOKING_CANCELLED. Re-cancelling is a no-op replay; cancelling a
// CONFIRMED booking fails with ErrState.
func (s *Service) Cancel(ctx context.Context, bookingID, hallID uuid.UUID, reason string) (*domain.Booking, error) {
	return s.cancel(ctx, bookingID, hallID, reason, false)
}

// UnlockAndCancel behaves like Cancel but additionally releases the seat
// locks held by the booking's user and emits BOOKING_UNLOCKED_CANCELLED.
func (s *Service) UnlockAndCancel(ctx context.Context, bookingID, hallID uuid.UUID, reason string) (*domain.Booking, error) {
	return s.cancel(ctx, bookingID, hallID, reason, true)
}

func (s *Service) cancel(ctx context.Context, bookingID, hallID uuid.UUID, reason string, unlock bool) (*domain.Booking, error) {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if b.Status == domain.StatusCancelled {
		return b, nil
	}
	if err := b.Cancel(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateStatus(ctx, b.ID, domain.StatusCancelled); err != nil {
		return nil, err
	}

	seats := b.Seats()
	if unlock {
		if err := s.locks.Release(ctx, b.ShowID.String(), seats, b.UserID.String()); err != nil {
			s.logger.WithError(err).WithField("booking_id", b.ID).Warn("seat lock release failed")
		}
	}
	if err := s.authority.Release(ctx, b.ShowID, hallID, seats); err != nil {
		s.logger.WithError(err).WithField("booking_id", b.ID).Error("ledger release failed after local commit")
		return nil, err
	}
	if err := s.projection.MarkReleased(ctx, b.ShowID.String(), seats); err != nil {
		s.logger.WithError(err).WithField("booking_id", b.ID).Warn("availability projection update failed")
	}

	eventType := EventBookingCancelled
	if unlock {
		eventType = EventBookingUnlockedCancelled
		s.metrics.BookingsUnlockedCancelled.Inc()
	} else {
		s.metrics.BookingsCancelled.Inc()
	}
	s.logger.WithFields(map[string]interface{}{"booking_id": b.ID, "reason": reason}).Info("booking cancelled")
	s.notify(ctx, b, hallID, eventType, reason)
	return b, nil
}

// LockSeats grabs a pre-booking hold on the seats for the user and mirrors
// the move into the availability projection. This path touches neither the
// ledger nor the booking store.
func (s *Service) LockSeats(ctx context.Context, showID uuid.UUID, seatIDs []string, userID uuid.UUID) (bool, error) {
	ok, err := s.locks.TryAcquire(ctx, showID.String(), seatIDs, userID.String())
	if err != nil {
		return false, err
	}
	if !ok {
		s.metrics.SeatLockConflicts.Inc()
		return false, nil
	}
	if err := s.projection.MarkLocked(ctx, showID.String(), seatIDs); err != nil {
		s.logger.WithError(err).WithField("show_id", showID).Warn("availability projection update failed")
	}
	return true, nil
}

// CancelStalePending cancels every PENDING booking created before cutoff and
// drives the full release path for each. Safe to re-run: anything already
// CANCELLED never matches the query again.
func (s *Service) CancelStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	stale, err := s.store.FindStalePending(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(stale) > 0 {
		s.logger.WithFields(map[string]interface{}{"count": len(stale), "cutoff": cutoff}).Info("found stale pending bookings")
	}

	count := 0
	for i := range stale {
		b := &stale[i]
		if err := s.store.UpdateStatus(ctx, b.ID, domain.StatusCancelled); err != nil {
			s.logger.WithError(err).WithField("booking_id", b.ID).Error("cancelling stale booking failed")
			continue
		}
		seats := b.Seats()
		if err := s.locks.Release(ctx, b.ShowID.String(), seats, b.UserID.String()); err != nil {
			s.logger.WithError(err).WithField("booking_id", b.ID).Warn("seat lock release failed")
		}
		if err := s.authority.Release(ctx, b.ShowID, b.HallID, seats); err != nil {
			s.logger.WithError(err).WithField("booking_id", b.ID).Error("ledger release failed for stale booking")
		}
		if err := s.projection.MarkReleased(ctx, b.ShowID.String(), seats); err != nil {
			s.logger.WithError(err).WithField("booking_id", b.ID).Warn("availability projection update failed")
		}
		s.metrics.BookingsAutoCancelled.Inc()
		count++
		s.logger.WithFields(map[string]interface{}{"booking_id": b.ID, "user_id": b.UserID}).Info("auto-cancelled stale booking")
	}
	return count, nil
}

// SeatsLockedBy lists the seats of a show currently locked by the user.
func (s *Service) SeatsLockedBy(ctx context.Context, showID, userID uuid.UUID) ([]string, error) {
	return s.locks.HeldBy(ctx, showID.String(), userID.String())
}

// AllLockedSeats lists every locked seat of a show regardless of holder.
func (s *Service) AllLockedSeats(ctx context.Context, showID uuid.UUID) ([]string, error) {
	return s.locks.AllHeld(ctx, showID.String())
}

// SeatMap returns the cached availability view for a show. Derived data;
// callers needing authoritative state ask the seat authority or BookedSeats.
func (s *Service) SeatMap(ctx context.Context, showID uuid.UUID) (*SeatMap, error) {
	return s.projection.Snapshot(ctx, showID.String())
}

// BookedSeats flattens the seats of all CONFIRMED bookings for a show.
func (s *Service) BookedSeats(ctx context.Context, showID uuid.UUID) ([]string, error) {
	bookings, err := s.store.FindByShowAndStatus(ctx, showID, domain.StatusConfirmed)
	if err != nil {
		return nil, err
	}
	var seats []string
	for i := range bookings {
		seats = append(seats, bookings[i].Seats()...)
	}
	return seats, nil
}

// Status returns just the lifecycle status of a booking.
func (s *Service) Status(ctx context.Context, bookingID uuid.UUID) (domain.BookingStatus, error) {
	b, err := s.store.Get(ctx, bookingID)
	if err != nil {
		return "", err
	}
	return b.Status, nil
}

// UserBooking is a booking enriched with display metadata for listings.
type UserBooking struct {
	Booking    domain.Booking
	MovieTitle string
	HallName   string
	ShowTime   *time.Time
}

// BookingsForUser lists the user's PENDING and CONFIRMED bookings, each
// enriched best-effort.
func (s *Service) BookingsForUser(ctx context.Context, userID uuid.UUID) ([]UserBooking, error) {
	bookings, err := s.store.FindByUserAndStatuses(ctx, userID, []domain.BookingStatus{domain.StatusPending, domain.StatusConfirmed})
	if err != nil {
		return nil, err
	}
	return s.enrichAll(ctx, bookings), nil
}

// BookingHistory lists every booking of the user, cancelled ones included.
func (s *Service) BookingHistory(ctx context.Context, userID uuid.UUID) ([]UserBooking, error) {
	bookings, err := s.store.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.enrichAll(ctx, bookings), nil
}

func (s *Service) enrichAll(ctx context.Context, bookings []domain.Booking) []UserBooking {
	out := make([]UserBooking, len(bookings))
	for i := range bookings {
		movieTitle, hallName, showTime := s.enrich(ctx, &bookings[i])
		out[i] = UserBooking{
			Booking:    bookings[i],
			MovieTitle: movieTitle,
			HallName:   hallName,
			ShowTime:   showTime,
		}
	}
	return out
}

func (s *Service) notify(ctx context.Context, b *domain.Booking, hallID uuid.UUID, eventType, reason string) {
	movieTitle, hallName, showTime := s.enrich(ctx, b)
	n := Notification{
		EventID:      uuid.New(),
		EventType:    eventType,
		Timestamp:    time.Now().UTC(),
		BookingID:    b.ID,
		UserID:       b.UserID,
		ShowID:       b.ShowID,
		HallID:       hallID,
		Seats:        b.Seats(),
		Amount:       b.TotalAmount,
		CancelReason: reason,
		MovieTitle:   movieTitle,
		HallName:     hallName,
		ShowTime:     showTime,
	}
	if err := s.publisher.PublishNotification(ctx, n); err != nil {
		s.metrics.NotificationFailures.Inc()
		s.logger.WithError(err).WithFields(map[string]interface{}{
			"booking_id": b.ID,
			"event_type": eventType,
		}).Error("notification publish failed")
	}
}

// enrich fetches display metadata in parallel. Any failure degrades the
// corresponding field and is only logged.
func (s *Service) enrich(ctx context.Context, b *domain.Booking) (movieTitle, hallName string, showTime *time.Time) {
	if s.metadata == nil {
		return "", "", nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		show, err := s.metadata.Show(gctx, b.ShowID)
		if err != nil {
			s.logger.WithError(err).WithField("show_id", b.ShowID).Warn("show metadata lookup failed")
			return nil
		}
		t := show.StartTime
		showTime = &t
		if show.MovieID == uuid.Nil {
			return nil
		}
		title, err := s.metadata.MovieTitle(gctx, show.MovieID)
		if err != nil {
			s.logger.WithError(err).WithField("movie_id", show.MovieID).Warn("movie metadata lookup failed")
			return nil
		}
		movieTitle = title
		return nil
	})
	g.Go(func() error {
		if b.HallID == uuid.Nil {
			return nil
		}
		name, err := s.metadata.HallName(gctx, b.HallID)
		if err != nil {
			s.logger.WithError(err).WithField("hall_id", b.HallID).Warn("hall metadata lookup failed")
			return nil
		}
		hallName = name
		return nil
	})
	_ = g.Wait()
	return movieTitle, hallName, showTime
}
