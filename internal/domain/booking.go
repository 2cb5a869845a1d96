package domain

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Booking is the aggregate root for a seat reservation. It is created in
// PENDING only after the seat authority accepted the reservation, mutated
// only through Confirm/Cancel, and never deleted.
type Booking struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	ShowID      uuid.UUID
	HallID      uuid.UUID
	Status      BookingStatus
	TotalAmount float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Items       []BookingItem
}

// BookingItem carries an ordered group of seats at a single price. Items have
// no lifecycle of their own and cascade with the booking.
type BookingItem struct {
	ID        uuid.UUID
	BookingID uuid.UUID
	SeatIDs   []string
	Price     float64
	CreatedAt time.Time
}

// NewBooking stamps identifiers and timestamps up front so the store only
// ever sees complete records. The requested seats become a single item priced
// at the full amount.
func NewBooking(userID, showID, hallID uuid.UUID, seatIDs []string, totalAmount float64) Booking {
	now := time.Now().UTC()
	id := uuid.New()
	item := BookingItem{
		ID:        uuid.New(),
		BookingID: id,
		SeatIDs:   append([]string(nil), seatIDs...),
		Price:     totalAmount,
		CreatedAt: now,
	}
	return Booking{
		ID:          id,
		UserID:      userID,
		ShowID:      showID,
		HallID:      hallID,
		Status:      StatusPending,
		TotalAmount: totalAmount,
		CreatedAt:   now,
		UpdatedAt:   now,
		Items:       []BookingItem{item},
	}
}

// Seats flattens the seat ids of all items, preserving item order.
func (b *Booking) Seats() []string {
	var seats []string
	for _, item := range b.Items {
		seats = append(seats, item.SeatIDs...)
	}
	return seats
}

// Confirm moves PENDING to CONFIRMED. Confirming twice is a no-op;
// confirming a cancelled booking fails.
func (b *Booking) Confirm() error {
	switch b.Status {
	case StatusConfirmed:
		return nil
	case StatusCancelled:
		return errors.Wrapf(ErrState, "cannot confirm booking %s in status %s", b.ID, b.Status)
	}
	b.Status = StatusConfirmed
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel moves PENDING to CANCELLED. Cancelling twice is a no-op;
// cancelling a confirmed booking fails.
func (b *Booking) Cancel() error {
	switch b.Status {
	case StatusCancelled:
		return nil
	case StatusConfirmed:
		return errors.Wrapf(ErrState, "cannot cancel booking %s in status %s", b.ID, b.Status)
	}
	b.Status = StatusCancelled
	b.UpdatedAt = time.Now().UTC()
	return nil
}

// AddItem keeps TotalAmount equal to the sum of item prices.
func (b *Booking) AddItem(item BookingItem) {
	item.BookingID = b.ID
	b.Items = append(b.Items, item)
	b.TotalAmount += item.Price
}
