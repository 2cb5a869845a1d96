package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventura/booking-service/internal/booking"
	"github.com/eventura/booking-service/internal/domain"
	httphandler "github.com/eventura/booking-service/internal/http"
	"github.com/eventura/booking-service/internal/idempotency"
	"github.com/eventura/booking-service/internal/observability"
	"github.com/eventura/booking-service/internal/ratelimit"
)

type fakeService struct {
	booking    *domain.Booking
	err        error
	lockResult bool
	seats      []string
}

func (f *fakeService) Create(context.Context, uuid.UUID, uuid.UUID, uuid.UUID, []string, float64) (*domain.Booking, error) {
	return f.booking, f.err
}

func (f *fakeService) Confirm(context.Context, uuid.UUID, uuid.UUID) (*domain.Booking, error) {
	return f.booking, f.err
}

func (f *fakeService) Cancel(context.Context, uuid.UUID, uuid.UUID, string) (*domain.Booking, error) {
	return f.booking, f.err
}

func (f *fakeService) UnlockAndCancel(context.Context, uuid.UUID, uuid.UUID, string) (*domain.Booking, error) {
	return f.booking, f.err
}

func (f *fakeService) MarkPaymentSuccess(context.Context, uuid.UUID, uuid.UUID) (*domain.Booking, error) {
	return f.booking, f.err
}

func (f *fakeService) LockSeats(context.Context, uuid.UUID, []string, uuid.UUID) (bool, error) {
	return f.lockResult, f.err
}

func (f *fakeService) SeatsLockedBy(context.Context, uuid.UUID, uuid.UUID) ([]string, error) {
	return f.seats, f.err
}

func (f *fakeService) AllLockedSeats(context.Context, uuid.UUID) ([]string, error) {
	return f.seats, f.err
}

func (f *fakeService) BookedSeats(context.Context, uuid.UUID) ([]string, error) {
	return f.seats, f.err
}

func (f *fakeService) SeatMap(context.Context, uuid.UUID) (*booking.SeatMap, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &booking.SeatMap{Available: []string{"B1"}, Locked: f.seats}, nil
}

func (f *fakeService) Status(context.Context, uuid.UUID) (domain.BookingStatus, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.booking.Status, nil
}

func (f *fakeService) BookingsForUser(context.Context, uuid.UUID) ([]booking.UserBooking, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []booking.UserBooking{{Booking: *f.booking}}, nil
}

func (f *fakeService) BookingHistory(context.Context, uuid.UUID) ([]booking.UserBooking, error) {
	return f.BookingsForUser(context.Background(), uuid.Nil)
}

func newRouter(svc httphandler.BookingService) http.Handler {
	db, _ := redismock.NewClientMock()
	idemp := idempotency.NewStore(db, time.Hour)
	rl := ratelimit.NewRateLimiter(db)
	h := httphandler.NewHandlers(svc, idemp, observability.NewNopLogger())
	return httphandler.SetupRouter(h, observability.NewNopLogger(), observability.NewTestMetrics(), rl)
}

func postJSON(t *testing.T, router http.Handler, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCreateBookingReturns201(t *testing.T) {
	b := domain.NewBooking(uuid.New(), uuid.New(), uuid.New(), []string{"A1", "A2"}, 500)
	router := newRouter(&fakeService{booking: &b})

	rec := postJSON(t, router, "/v1/bookings", map[string]interface{}{
		"userId":      b.UserID,
		"showId":      b.ShowID,
		"hallId":      b.HallID,
		"seats":       []string{"A1", "A2"},
		"totalAmount": 500,
	})

	assert.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		Status string   `json:"status"`
		Seats  []string `json:"seats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "PENDING", resp.Status)
	assert.Equal(t, []string{"A1", "A2"}, resp.Seats)
}

func TestCreateBookingConflictReturns409(t *testing.T) {
	router := newRouter(&fakeService{err: domain.ErrConflict})
	rec := postJSON(t, router, "/v1/bookings", map[string]interface{}{"seats": []string{"A1"}})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestConfirmUnknownBookingReturns404(t *testing.T) {
	router := newRouter(&fakeService{err: domain.ErrNotFound})
	rec := postJSON(t, router, "/v1/bookings/"+uuid.NewString()+"/confirm", map[string]interface{}{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfirmInvalidIDReturns400(t *testing.T) {
	router := newRouter(&fakeService{})
	rec := postJSON(t, router, "/v1/bookings/not-a-uuid/confirm", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnlockCancelConfirmedReturns422(t *testing.T) {
	router := newRouter(&fakeService{err: domain.ErrState})
	rec := postJSON(t, router, "/v1/bookings/"+uuid.NewString()+"/unlock-cancel", map[string]interface{}{"reason": "x"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateBookingUpstreamReturns502(t *testing.T) {
	router := newRouter(&fakeService{err: domain.ErrUpstream})
	rec := postJSON(t, router, "/v1/bookings", map[string]interface{}{"seats": []string{"A1"}})
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLockSeatsConflictReturns409(t *testing.T) {
	router := newRouter(&fakeService{lockResult: false})
	rec := postJSON(t, router, "/v1/shows/"+uuid.NewString()+"/seats/lock", map[string]interface{}{
		"userId": uuid.New(),
		"seats":  []string{"A1"},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLockedSeats(t *testing.T) {
	router := newRouter(&fakeService{seats: []string{"A1", "B2"}})
	req := httptest.NewRequest(http.MethodGet, "/v1/shows/"+uuid.NewString()+"/seats/locked", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"A1", "B2"}, resp["seats"])
}

func TestSeatMap(t *testing.T) {
	router := newRouter(&fakeService{seats: []string{"A1"}})
	req := httptest.NewRequest(http.MethodGet, "/v1/shows/"+uuid.NewString()+"/seats", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"B1"}, resp["available"])
	assert.Equal(t, []string{"A1"}, resp["locked"])
	assert.Equal(t, []string{}, resp["booked"])
}

func TestPaymentCallbackConfirms(t *testing.T) {
	b := domain.NewBooking(uuid.New(), uuid.New(), uuid.New(), []string{"A1"}, 100)
	require.NoError(t, b.Confirm())
	router := newRouter(&fakeService{booking: &b})

	rec := postJSON(t, router, "/v1/payments/callback", map[string]interface{}{
		"bookingId": b.ID,
		"hallId":    b.HallID,
		"status":    "SUCCEEDED",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIRMED", resp.Status)
}

func TestHealthz(t *testing.T) {
	router := newRouter(&fakeService{})
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
