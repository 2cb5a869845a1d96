package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/eventura/booking-service/internal/adapters/postgres"
	"github.com/eventura/booking-service/internal/adapters/rabbit"
	"github.com/eventura/booking-service/internal/authority"
	"github.com/eventura/booking-service/internal/availability"
	"github.com/eventura/booking-service/internal/booking"
	httphandler "github.com/eventura/booking-service/internal/http"
	"github.com/eventura/booking-service/internal/idempotency"
	"github.com/eventura/booking-service/internal/lock"
	"github.com/eventura/booking-service/internal/observability"
	"github.com/eventura/booking-service/internal/ratelimit"
)

const schema = `
CREATE TABLE IF NOT EXISTS bookings (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL,
	show_id UUID NOT NULL,
	hall_id UUID NOT NULL,
	status TEXT NOT NULL,
	total_amount DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS booking_items (
	id UUID PRIMARY KEY,
	booking_id UUID NOT NULL REFERENCES bookings(id),
	seat_ids TEXT[] NOT NULL,
	price DOUBLE PRECISION NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
`

// ledgerStub stands in for the seat authority and records every call it sees.
type ledgerStub struct {
	mu    sync.Mutex
	paths []string
}

func (l *ledgerStub) handler() http.Handler {
	mux := http.NewServeMux()
	record := func(w http.ResponseWriter, r *http.Request) {
		l.mu.Lock()
		l.paths = append(l.paths, r.URL.Path)
		l.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
	mux.HandleFunc("/shows/lock-seats", record)
	mux.HandleFunc("/shows/confirm-seats", record)
	mux.HandleFunc("/shows/release-seats", record)
	return mux
}

func (l *ledgerStub) seen(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.paths {
		if p == path {
			return true
		}
	}
	return false
}

func TestIntegration_LockCreateConfirm(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_USER": "postgres", "POSTGRES_PASSWORD": "postgres", "POSTGRES_DB": "bookings"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForExec([]string{"pg_isready", "-U", "postgres"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer pgContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer redisContainer.Terminate(ctx)

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health").WithPort("15672"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitContainer.Terminate(ctx)

	pgHost, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatal(err)
	}
	redisHost, err := redisContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatal(err)
	}
	rabbitHost, err := rabbitContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	rabbitPort, err := rabbitContainer.MappedPort(ctx, "5672")
	if err != nil {
		t.Fatal(err)
	}

	dsn := "postgresql://postgres:postgres@" + pgHost + ":" + pgPort.Port() + "/bookings?sslmode=disable"
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, schema); err != nil {
		t.Fatal(err)
	}
	store := postgres.NewStore(pool)

	logger := observability.NewNopLogger()
	metrics := observability.NewTestMetrics()

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: redisHost + ":" + redisPort.Port()})
	defer redisClient.Close()
	seatLock := lock.NewRedisSeatLock(redisClient, 5*time.Minute, logger)
	projection := availability.NewRedisProjection(redisClient)
	idemp := idempotency.NewStore(redisClient, time.Hour)
	rl := ratelimit.NewRateLimiter(redisClient)

	ledger := &ledgerStub{}
	ledgerSrv := httptest.NewServer(ledger.handler())
	defer ledgerSrv.Close()
	seatAuthority := authority.NewClient(ledgerSrv.URL, 5*time.Second, logger)

	rabbitURL := "amqp://guest:guest@" + rabbitHost + ":" + rabbitPort.Port() + "/"
	rabbitConn, err := amqp.Dial(rabbitURL)
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitConn.Close()
	publisher, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		t.Fatal(err)
	}

	// consume lifecycle notifications so the publish path is verified end to end
	consumeCh, err := rabbitConn.Channel()
	if err != nil {
		t.Fatal(err)
	}
	q, err := consumeCh.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := consumeCh.QueueBind(q.Name, "notification.#", "booking.events", false, nil); err != nil {
		t.Fatal(err)
	}
	deliveries, err := consumeCh.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	svc := booking.NewService(store, seatAuthority, seatLock, projection, publisher, nil, logger, metrics)
	handlers := httphandler.NewHandlers(svc, idemp, logger)
	router := httphandler.SetupRouter(handlers, logger, metrics, rl)
	apiSrv := httptest.NewServer(router)
	defer apiSrv.Close()

	userID := uuid.New()
	showID := uuid.New()
	hallID := uuid.New()

	// lock the seats for the user
	resp := post(t, apiSrv.URL+"/v1/shows/"+showID.String()+"/seats/lock", map[string]interface{}{
		"userId": userID.String(),
		"seats":  []string{"A1", "A2"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("lock failed, status: %d", resp.StatusCode)
	}

	// a second user must not be able to take the same seats
	resp = post(t, apiSrv.URL+"/v1/shows/"+showID.String()+"/seats/lock", map[string]interface{}{
		"userId": uuid.New().String(),
		"seats":  []string{"A2"},
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 for contested seat, got %d", resp.StatusCode)
	}

	// create the booking
	resp = post(t, apiSrv.URL+"/v1/bookings", map[string]interface{}{
		"userId":      userID.String(),
		"showId":      showID.String(),
		"hallId":      hallID.String(),
		"seats":       []string{"A1", "A2"},
		"totalAmount": 500.0,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create failed, status: %d", resp.StatusCode)
	}
	var created struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatal(err)
	}
	if created.Status != "PENDING" {
		t.Fatalf("expected PENDING, got %s", created.Status)
	}
	if !ledger.seen("/shows/lock-seats") {
		t.Fatal("ledger never saw the reserve call")
	}

	// payment succeeds, booking confirms
	resp = post(t, apiSrv.URL+"/v1/payments/callback", map[string]interface{}{
		"bookingId": created.ID.String(),
		"hallId":    hallID.String(),
		"status":    "SUCCEEDED",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("payment callback failed, status: %d", resp.StatusCode)
	}

	httpResp, err := http.Get(apiSrv.URL + "/v1/bookings/" + created.ID.String() + "/status")
	if err != nil {
		t.Fatal(err)
	}
	var statusResp struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(httpResp.Body).Decode(&statusResp); err != nil {
		t.Fatal(err)
	}
	if statusResp.Status != "CONFIRMED" {
		t.Fatalf("expected CONFIRMED, got %s", statusResp.Status)
	}
	if !ledger.seen("/shows/confirm-seats") {
		t.Fatal("ledger never saw the finalize call")
	}

	select {
	case d := <-deliveries:
		var n booking.Notification
		if err := json.Unmarshal(d.Body, &n); err != nil {
			t.Fatal(err)
		}
		if n.EventType != booking.EventBookingConfirmed {
			t.Fatalf("expected %s notification, got %s", booking.EventBookingConfirmed, n.EventType)
		}
		if n.BookingID != created.ID {
			t.Fatalf("notification for wrong booking: %s", n.BookingID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("no notification arrived")
	}
}

func post(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}
