package domain

import "github.com/cockroachdb/errors"

// BookingStatus is persisted as a fixed string set. PENDING is the only
// initial state; CONFIRMED and CANCELLED are terminal.
type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
)

// ParseStatus rejects anything outside the known set. An unrecognized value
// coming back from the store is a data-integrity error, never coerced.
func ParseStatus(s string) (BookingStatus, error) {
	switch BookingStatus(s) {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return BookingStatus(s), nil
	}
	return "", errors.Wrapf(ErrInvalidInput, "unknown booking status %q", s)
}

func (s BookingStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled
}
