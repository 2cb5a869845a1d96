package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the booking lifecycle counters. It is constructed once in the
// composition root and injected, never reached through a package global.
type Metrics struct {
	BookingsCreated           prometheus.Counter
	BookingsConfirmed         prometheus.Counter
	BookingsCancelled         prometheus.Counter
	BookingsUnlockedCancelled prometheus.Counter
	BookingsAutoCancelled     prometheus.Counter
	SeatLockConflicts         prometheus.Counter
	NotificationFailures      prometheus.Counter
	HTTPRequests              *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	return newMetrics(prometheus.DefaultRegisterer)
}

// NewTestMetrics registers against a private registry so tests can construct
// metrics repeatedly without duplicate-registration panics.
func NewTestMetrics() *Metrics {
	return newMetrics(prometheus.NewRegistry())
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_created_total",
			Help: "Bookings created in PENDING state",
		}),
		BookingsConfirmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_confirmed_total",
			Help: "Bookings moved to CONFIRMED",
		}),
		BookingsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_cancelled_total",
			Help: "Bookings moved to CANCELLED by a caller",
		}),
		BookingsUnlockedCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_unlocked_cancelled_total",
			Help: "Bookings cancelled with their seat locks released",
		}),
		BookingsAutoCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "booking_auto_cancelled_total",
			Help: "Stale PENDING bookings cancelled by the reclaimer",
		}),
		SeatLockConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "seat_lock_conflicts_total",
			Help: "Seat lock acquisitions lost to another holder",
		}),
		NotificationFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "notification_publish_failures_total",
			Help: "Lifecycle notifications that failed to publish",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method and status code",
		}, []string{"method", "code"}),
	}
}
