package http

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eventura/booking-service/internal/observability"
	"github.com/eventura/booking-service/internal/ratelimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, metrics *observability.Metrics, rl *ratelimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware(metrics))

	r.Route("/v1", func(r chi.Router) {
		r.Post("/bookings", h.CreateBooking)
		r.Post("/bookings/{id}/confirm", h.ConfirmBooking)
		r.Post("/bookings/{id}/cancel", h.CancelBooking)
		r.Post("/bookings/{id}/unlock-cancel", h.UnlockAndCancelBooking)
		r.Get("/bookings/{id}/status", h.BookingStatus)
		r.Post("/payments/callback", h.PaymentCallback)
		r.Get("/users/{id}/bookings", h.UserBookings)
		r.Get("/users/{id}/bookings/history", h.UserBookingHistory)

		r.With(RateLimitMiddleware(rl, 30, time.Minute)).Post("/shows/{id}/seats/lock", h.LockSeats)
		r.Get("/shows/{id}/seats", h.SeatMap)
		r.Get("/shows/{id}/seats/locked", h.LockedSeats)
		r.Get("/shows/{id}/seats/locked/{userId}", h.LockedSeatsForUser)
		r.Get("/shows/{id}/seats/booked", h.BookedSeats)

		r.Get("/healthz", h.Healthz)
		r.Get("/readyz", h.Readyz)
	})
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
