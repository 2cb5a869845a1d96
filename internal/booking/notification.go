package booking

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventBookingConfirmed         = "BOOKING_CONFIRMED"
	EventBookingCancelled         = "BOOKING_CANCELLED"
	EventBookingUnlockedCancelled = "BOOKING_UNLOCKED_CANCELLED"
)

// Notification is the fire-and-forget lifecycle message. MovieTitle,
// HallName and ShowTime are enrichment fields and may be empty when the
// metadata lookups failed.
type Notification struct {
	EventID      uuid.UUID  `json:"eventId"`
	EventType    string     `json:"eventType"`
	Timestamp    time.Time  `json:"timestamp"`
	BookingID    uuid.UUID  `json:"bookingId"`
	UserID       uuid.UUID  `json:"userId"`
	ShowID       uuid.UUID  `json:"showId"`
	HallID       uuid.UUID  `json:"hallId"`
	Seats        []string   `json:"seats"`
	Amount       float64    `json:"amount"`
	CancelReason string     `json:"cancelReason,omitempty"`
	MovieTitle   string     `json:"movieTitle,omitempty"`
	HallName     string     `json:"hallName,omitempty"`
	ShowTime     *time.Time `json:"showTime,omitempty"`
}
