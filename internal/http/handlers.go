package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/eventura/booking-service/internal/booking"
	"github.com/eventura/booking-service/internal/domain"
	"github.com/eventura/booking-service/internal/idempotency"
	"github.com/eventura/booking-service/internal/observability"
)

// BookingService is the slice of the orchestrator the HTTP layer maps onto.
type BookingService interface {
	Create(ctx context.Context, userID, showID, hallID uuid.UUID, seatIDs []string, totalAmount float64) (*domain.Booking, error)
	Confirm(ctx context.Context, bookingID, hallID uuid.UUID) (*domain.Booking, error)
	Cancel(ctx context.Context, bookingID, hallID uuid.UUID, reason string) (*domain.Booking, error)
	UnlockAndCancel(ctx context.Context, bookingID, hallID uuid.UUID, reason string) (*domain.Booking, error)
	MarkPaymentSuccess(ctx context.Context, bookingID, hallID uuid.UUID) (*domain.Booking, error)
	LockSeats(ctx context.Context, showID uuid.UUID, seatIDs []string, userID uuid.UUID) (bool, error)
	SeatsLockedBy(ctx context.Context, showID, userID uuid.UUID) ([]string, error)
	AllLockedSeats(ctx context.Context, showID uuid.UUID) ([]string, error)
	BookedSeats(ctx context.Context, showID uuid.UUID) ([]string, error)
	SeatMap(ctx context.Context, showID uuid.UUID) (*booking.SeatMap, error)
	Status(ctx context.Context, bookingID uuid.UUID) (domain.BookingStatus, error)
	BookingsForUser(ctx context.Context, userID uuid.UUID) ([]booking.UserBooking, error)
	BookingHistory(ctx context.Context, userID uuid.UUID) ([]booking.UserBooking, error)
}

type Handlers struct {
	svc    BookingService
	idemp  *idempotency.Store
	logger observability.Logger
}

func NewHandlers(svc BookingService, idemp *idempotency.Store, logger observability.Logger) *Handlers {
	return &Handlers{svc: svc, idemp: idemp, logger: logger}
}

type bookingResponse struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	ShowID      uuid.UUID `json:"showId"`
	HallID      uuid.UUID `json:"hallId"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"totalAmount"`
	Seats       []string  `json:"seats"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toBookingResponse(b *domain.Booking) bookingResponse {
	return bookingResponse{
		ID:          b.ID,
		UserID:      b.UserID,
		ShowID:      b.ShowID,
		HallID:      b.HallID,
		Status:      string(b.Status),
		TotalAmount: b.TotalAmount,
		Seats:       b.Seats(),
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
	}
}

func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if key != "" {
		existing, err := h.idemp.Get(r.Context(), key)
		if err != nil {
			h.logger.WithError(err).Warn("idempotency lookup failed")
		} else if existing != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(existing.Status)
			_, _ = w.Write(existing.Result)
			return
		}
	}

	var req struct {
		UserID      uuid.UUID `json:"userId"`
		ShowID      uuid.UUID `json:"showId"`
		HallID      uuid.UUID `json:"hallId"`
		Seats       []string  `json:"seats"`
		TotalAmount float64   `json:"totalAmount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}

	b, err := h.svc.Create(r.Context(), req.UserID, req.ShowID, req.HallID, req.Seats, req.TotalAmount)
	if err != nil {
		writeError(w, err)
		return
	}

	data, _ := json.Marshal(toBookingResponse(b))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(data)

	if key != "" {
		if err := h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data}); err != nil {
			h.logger.WithError(err).Warn("idempotency store failed")
		}
	}
}

func (h *Handlers) ConfirmBooking(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		HallID uuid.UUID `json:"hallId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}
	b, err := h.svc.Confirm(r.Context(), bookingID, req.HallID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, false)
}

func (h *Handlers) UnlockAndCancelBooking(w http.ResponseWriter, r *http.Request) {
	h.cancel(w, r, true)
}

func (h *Handlers) cancel(w http.ResponseWriter, r *http.Request, unlock bool) {
	bookingID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		HallID uuid.UUID `json:"hallId"`
		Reason string    `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}
	var (
		b   *domain.Booking
		err error
	)
	if unlock {
		b, err = h.svc.UnlockAndCancel(r.Context(), bookingID, req.HallID, req.Reason)
	} else {
		b, err = h.svc.Cancel(r.Context(), bookingID, req.HallID, req.Reason)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handlers) BookingStatus(w http.ResponseWriter, r *http.Request) {
	bookingID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	status, err := h.svc.Status(r.Context(), bookingID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID uuid.UUID `json:"bookingId"`
		HallID    uuid.UUID `json:"hallId"`
		Status    string    `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}

	var (
		b   *domain.Booking
		err error
	)
	if req.Status == "SUCCEEDED" {
		b, err = h.svc.MarkPaymentSuccess(r.Context(), req.BookingID, req.HallID)
	} else {
		b, err = h.svc.UnlockAndCancel(r.Context(), req.BookingID, req.HallID, "payment "+req.Status)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b))
}

func (h *Handlers) LockSeats(w http.ResponseWriter, r *http.Request) {
	showID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var req struct {
		UserID uuid.UUID `json:"userId"`
		Seats  []string  `json:"seats"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, errors.Wrap(domain.ErrInvalidInput, err.Error()))
		return
	}
	locked, err := h.svc.LockSeats(r.Context(), showID, req.Seats, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	if !locked {
		writeJSON(w, http.StatusConflict, map[string]bool{"locked": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"locked": true})
}

func (h *Handlers) LockedSeats(w http.ResponseWriter, r *http.Request) {
	showID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	seats, err := h.svc.AllLockedSeats(r.Context(), showID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"seats": emptyIfNil(seats)})
}

func (h *Handlers) LockedSeatsForUser(w http.ResponseWriter, r *http.Request) {
	showID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathUUID(w, r, "userId")
	if !ok {
		return
	}
	seats, err := h.svc.SeatsLockedBy(r.Context(), showID, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"seats": emptyIfNil(seats)})
}

func (h *Handlers) BookedSeats(w http.ResponseWriter, r *http.Request) {
	showID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	seats, err := h.svc.BookedSeats(r.Context(), showID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"seats": emptyIfNil(seats)})
}

func (h *Handlers) SeatMap(w http.ResponseWriter, r *http.Request) {
	showID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	m, err := h.svc.SeatMap(r.Context(), showID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{
		"available": emptyIfNil(m.Available),
		"locked":    emptyIfNil(m.Locked),
		"booked":    emptyIfNil(m.Booked),
	})
}

func (h *Handlers) UserBookings(w http.ResponseWriter, r *http.Request) {
	h.listUserBookings(w, r, false)
}

func (h *Handlers) UserBookingHistory(w http.ResponseWriter, r *http.Request) {
	h.listUserBookings(w, r, true)
}

func (h *Handlers) listUserBookings(w http.ResponseWriter, r *http.Request, history bool) {
	userID, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}
	var (
		bookings []booking.UserBooking
		err      error
	)
	if history {
		bookings, err = h.svc.BookingHistory(r.Context(), userID)
	} else {
		bookings, err = h.svc.BookingsForUser(r.Context(), userID)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	type userBookingResponse struct {
		bookingResponse
		MovieTitle string     `json:"movieTitle,omitempty"`
		HallName   string     `json:"hallName,omitempty"`
		ShowTime   *time.Time `json:"showTime,omitempty"`
	}
	out := make([]userBookingResponse, len(bookings))
	for i, ub := range bookings {
		b := ub.Booking
		out[i] = userBookingResponse{
			bookingResponse: toBookingResponse(&b),
			MovieTitle:      ub.MovieTitle,
			HallName:        ub.HallName,
			ShowTime:        ub.ShowTime,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Ready"))
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, errors.Wrapf(domain.ErrInvalidInput, "invalid %s", param))
		return uuid.Nil, false
	}
	return id, true
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrState):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrUpstream):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
