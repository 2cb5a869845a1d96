// Package postgres persists the booking aggregate. A booking and its items
// are written in one transaction; status updates are single statements.
package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/eventura/booking-service/internal/domain"
)

const serializationFailureCode = "40001"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == serializationFailureCode {
			return errors.Wrap(domain.ErrConflict, "serialization failure")
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Create(ctx context.Context, b *domain.Booking) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO bookings (id, user_id, show_id, hall_id, status, total_amount, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, b.ID, b.UserID, b.ShowID, b.HallID, string(b.Status), b.TotalAmount, b.CreatedAt, b.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, "inserting booking")
		}
		for _, item := range b.Items {
			_, err := tx.Exec(ctx, `
				INSERT INTO booking_items (id, booking_id, seat_ids, price, created_at)
				VALUES ($1, $2, $3, $4, $5)
			`, item.ID, b.ID, item.SeatIDs, item.Price, item.CreatedAt)
			if err != nil {
				return errors.Wrap(err, "inserting booking item")
			}
		}
		return nil
	})
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	var (
		b      domain.Booking
		status string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, show_id, hall_id, status, total_amount, created_at, updated_at
		FROM bookings WHERE id = $1
	`, id).Scan(&b.ID, &b.UserID, &b.ShowID, &b.HallID, &status, &b.TotalAmount, &b.CreatedAt, &b.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading booking")
	}
	if b.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	if err := s.loadItems(ctx, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) loadItems(ctx context.Context, b *domain.Booking) error {
	rows, err := s.pool.Query(ctx, `
		SELECT id, booking_id, seat_ids, price, created_at
		FROM booking_items WHERE booking_id = $1 ORDER BY created_at
	`, b.ID)
	if err != nil {
		return errors.Wrap(err, "loading booking items")
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.BookingItem
		if err := rows.Scan(&item.ID, &item.BookingID, &item.SeatIDs, &item.Price, &item.CreatedAt); err != nil {
			return errors.Wrap(err, "scanning booking item")
		}
		b.Items = append(b.Items, item)
	}
	return rows.Err()
}

func (s *Store) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.BookingStatus) error {
	result, err := s.pool.Exec(ctx, `
		UPDATE bookings SET status = $2, updated_at = $3 WHERE id = $1
	`, id, string(status), time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "updating booking status")
	}
	if result.RowsAffected() == 0 {
		return errors.Wrapf(domain.ErrNotFound, "booking %s", id)
	}
	return nil
}

func (s *Store) FindByShowAndStatus(ctx context.Context, showID uuid.UUID, status domain.BookingStatus) ([]domain.Booking, error) {
	return s.query(ctx, `
		SELECT id, user_id, show_id, hall_id, status, total_amount, created_at, updated_at
		FROM bookings WHERE show_id = $1 AND status = $2 ORDER BY created_at
	`, showID, string(status))
}

func (s *Store) FindByUser(ctx context.Context, userID uuid.UUID) ([]domain.Booking, error) {
	return s.query(ctx, `
		SELECT id, user_id, show_id, hall_id, status, total_amount, created_at, updated_at
		FROM bookings WHERE user_id = $1 ORDER BY created_at
	`, userID)
}

func (s *Store) FindByUserAndStatuses(ctx context.Context, userID uuid.UUID, statuses []domain.BookingStatus) ([]domain.Booking, error) {
	set := make([]string, len(statuses))
	for i, st := range statuses {
		set[i] = string(st)
	}
	return s.query(ctx, `
		SELECT id, user_id, show_id, hall_id, status, total_amount, created_at, updated_at
		FROM bookings WHERE user_id = $1 AND status = ANY($2) ORDER BY created_at
	`, userID, set)
}

func (s *Store) FindStalePending(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	return s.query(ctx, `
		SELECT id, user_id, show_id, hall_id, status, total_amount, created_at, updated_at
		FROM bookings WHERE status = $1 AND created_at < $2 ORDER BY created_at
	`, string(domain.StatusPending), cutoff)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]domain.Booking, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying bookings")
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var (
			b      domain.Booking
			status string
		)
		if err := rows.Scan(&b.ID, &b.UserID, &b.ShowID, &b.HallID, &status, &b.TotalAmount, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, "scanning booking")
		}
		if b.Status, err = domain.ParseStatus(status); err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range bookings {
		if err := s.loadItems(ctx, &bookings[i]); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}
