package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/eventura/booking-service/internal/adapters/mongo"
	"github.com/eventura/booking-service/internal/adapters/postgres"
	"github.com/eventura/booking-service/internal/adapters/rabbit"
	"github.com/eventura/booking-service/internal/authority"
	"github.com/eventura/booking-service/internal/availability"
	"github.com/eventura/booking-service/internal/booking"
	"github.com/eventura/booking-service/internal/config"
	httphandler "github.com/eventura/booking-service/internal/http"
	"github.com/eventura/booking-service/internal/idempotency"
	"github.com/eventura/booking-service/internal/lock"
	"github.com/eventura/booking-service/internal/observability"
	"github.com/eventura/booking-service/internal/ratelimit"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()
	metrics := observability.NewMetrics()

	pool, err := pgxpool.New(context.Background(), cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	seatLock := lock.NewRedisSeatLock(redisClient, cfg.LockTTL, logger)
	projection := availability.NewRedisProjection(redisClient)
	idemp := idempotency.NewStore(redisClient, time.Hour)
	rl := ratelimit.NewRateLimiter(redisClient)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	publisher, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	catalog := mongoadapter.NewCatalog(mongoClient.Database("catalog"), logger)

	seatAuthority := authority.NewClient(cfg.SeatAuthorityURL, cfg.AuthorityTimeout, logger)

	svc := booking.NewService(store, seatAuthority, seatLock, projection, publisher, catalog, logger, metrics)

	handlers := httphandler.NewHandlers(svc, idemp, logger)
	router := httphandler.SetupRouter(handlers, logger, metrics, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("booking service listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	logger.Info("server exited")
}
