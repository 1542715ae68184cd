package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"car-rental/config"
	"car-rental/internal/api"
	"car-rental/internal/customers"
	"car-rental/internal/fleet"
	"car-rental/internal/health"
	"car-rental/internal/journal"
	"car-rental/internal/notifications"
	"car-rental/internal/rentals"
	"car-rental/internal/reports"
	"car-rental/internal/rides"
	"car-rental/internal/tracking"
	"car-rental/internal/upkeep"
	"car-rental/migrations"
	"car-rental/pkg/db"
	"car-rental/pkg/jwt"
	"car-rental/pkg/kafka"
	"car-rental/pkg/logger"
	rredis "car-rental/pkg/redis"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── 1. Config & logger ──
	cfg := config.Load()
	log := logger.New(cfg.ServiceName, cfg.LogLevel, cfg.LogFormat)

	checks := map[string]health.Check{}

	// ── 2. Backend client ──
	backend := api.NewClient(cfg.BackendURL, cfg.BackendTimeout, log)

	// ── 3. PostgreSQL (ride journal) ──
	var (
		rideJournal rides.Journal
		failed      rides.FailedLister
	)
	if cfg.JournalEnabled {
		database, err := db.Connect(ctx, cfg.DatabaseURL, log)
		if err != nil {
			fatal(log, "postgres", err)
		}
		defer database.Close()

		if err := database.RunMigrations(ctx, migrations.FS); err != nil {
			fatal(log, "migrations failed", err)
		}
		repo := journal.New(database.Pool)
		rideJournal, failed = repo, repo
		checks["postgres"] = database.Pool.Ping
	}

	// ── 4. Redis ──
	var (
		redisClient *rredis.Client
		carIndex    fleet.Index
		nearby      rides.Nearby
	)
	if cfg.RedisEnabled() {
		var err error
		redisClient, err = rredis.NewClient(cfg.RedisAddr, cfg.RedisPassword, log)
		if err != nil {
			fatal(log, "redis", err)
		}
		defer redisClient.Close()
		carIndex, nearby = redisClient, redisClient
		checks["redis"] = redisClient.Ping
	}

	var notes notifications.Store = notifications.NewMemoryStore()
	if cfg.NotificationStore == "redis" && redisClient != nil {
		notes = notifications.NewRedisStore(redisClient)
	}

	// ── 5. Kafka ──
	var kafkaClient *kafka.Client
	if cfg.EventsEnabled {
		kafkaClient = kafka.NewClient(cfg.KafkaBrokers, log)
		defer kafkaClient.Close()

		if err := kafkaClient.EnsureTopics(ctx,
			kafka.TopicRideCompleted,
			kafka.TopicCarLocationUpdated,
		); err != nil {
			fatal(log, "kafka topics", err)
		}
	}

	// ── 6. Services ──
	fleetSvc := fleet.NewService(backend, carIndex, log)
	customerSvc := customers.NewService(backend, log)
	rentalSvc := rentals.NewService(backend)
	upkeepSvc := upkeep.NewService(backend, log)
	reportSvc := reports.NewService(backend, log)

	wsHub := tracking.NewHub(log)

	opts := []rides.CompleterOption{}
	if rideJournal != nil {
		opts = append(opts, rides.WithJournal(rideJournal))
	}
	if kafkaClient != nil {
		opts = append(opts, rides.WithPublisher(kafkaClient))
	}
	if redisClient != nil {
		opts = append(opts, rides.WithCarLocator(redisClient))
	}
	completer := rides.NewCompleter(backend, notes, cfg.DefaultPaymentMethod, log, opts...)
	rideSvc := rides.NewService(backend, nearby, wsHub, completer, rideJournal, rides.Options{
		StepDelay:      cfg.RideStepDelay,
		WalkSteps:      cfg.RideWalkSteps,
		NearbyRadiusKm: cfg.NearbyRadiusKm,
	}, log)
	wsHub.RequireRide(rideSvc.Exists)

	// ── 7. Background consumers ──
	var tally *reports.Tally
	if kafkaClient != nil && redisClient != nil {
		tally = reports.NewTally(redisClient, log)
		tally.Start(ctx, kafkaClient)
	}

	// ── 8. HTTP router ──
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(jwt.Carry)

	r.Get("/health", health.Handler(cfg.ServiceName, checks))
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RequireToken {
			r.Use(jwt.RequireToken)
		}
		r.Mount("/fleet", fleet.NewHandler(fleetSvc, cfg.NearbyRadiusKm).Routes())
		r.Mount("/customers", customers.NewHandler(customerSvc).Routes())
		r.Mount("/rentals", rentals.NewHandler(rentalSvc).Routes())
		r.Mount("/upkeep", upkeep.NewHandler(upkeepSvc).Routes())
		r.Mount("/reports", reports.NewHandler(reportSvc, tally).Routes())
		r.Mount("/rides", rides.NewHandler(rideSvc, failed).Routes())
		r.Mount("/notifications", notifications.NewHandler(notes).Routes())
	})
	r.Mount("/ws", wsHub.Routes())

	// ── 9. Start server ──
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTPPort), Handler: r}

	go func() {
		log.Info("listening", logger.Int("port", cfg.HTTPPort), logger.String("backend", cfg.BackendURL))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fatal(log, "http server", err)
		}
	}()

	// ── 10. Graceful shutdown ──
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down")

	shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutCancel()
	if err := srv.Shutdown(shutCtx); err != nil {
		log.Warn("http shutdown", logger.Error(err))
	}
	if err := rideSvc.Shutdown(shutCtx); err != nil {
		log.Warn("rides still running at shutdown", logger.Error(err))
	}
	cancel() // stop consumers
}

func fatal(log logger.Logger, msg string, err error) {
	log.Error(msg, logger.Error(err))
	os.Exit(1)
}
