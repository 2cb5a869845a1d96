package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"

	"github.com/eventura/booking-service/internal/adapters/postgres"
	"github.com/eventura/booking-service/internal/adapters/rabbit"
	"github.com/eventura/booking-service/internal/authority"
	"github.com/eventura/booking-service/internal/availability"
	"github.com/eventura/booking-service/internal/booking"
	"github.com/eventura/booking-service/internal/config"
	"github.com/eventura/booking-service/internal/lock"
	"github.com/eventura/booking-service/internal/observability"
	"github.com/eventura/booking-service/internal/reclaim"
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

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	publisher, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	seatAuthority := authority.NewClient(cfg.SeatAuthorityURL, cfg.AuthorityTimeout, logger)

	// the sweep never notifies or enriches, so no metadata source is wired
	svc := booking.NewService(store, seatAuthority, seatLock, projection, publisher, nil, logger, metrics)

	reclaimer := reclaim.NewReclaimer(svc, cfg.PendingTimeout, cfg.SweepInterval, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reclaimer.Run(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("shutting down reclaimer")
}
