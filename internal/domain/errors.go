package domain

import "github.com/cockroachdb/errors"

var (
	ErrNotFound     = errors.New("booking not found")
	ErrConflict     = errors.New("seat conflict")
	ErrInvalidInput = errors.New("invalid input")
	ErrState        = errors.New("illegal booking state transition")
	ErrUpstream     = errors.New("upstream unavailable")
)
