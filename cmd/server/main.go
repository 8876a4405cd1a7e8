package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"barbershop/internal/api"
	"barbershop/internal/booking"
	"barbershop/internal/cache"
	"barbershop/internal/config"
	"barbershop/internal/database"
	"barbershop/internal/database/postgres"
	"barbershop/internal/events"
	"barbershop/internal/metrics"
	"barbershop/internal/report"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// store is what the server needs from either database backend.
type store interface {
	booking.Store
	booking.SettingsStore
	report.Source
	PingContext(ctx context.Context) error
	Close() error
}

func main() {
	_ = godotenv.Load()

	configPath := os.Getenv("BARBERSHOP_CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		bootLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
		bootLogger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, sqliteDB, err := openStore(ctx, cfg, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database error")
	}
	defer st.Close()

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid booking timezone")
	}
	bus := events.NewEventBus(&logger)
	svc := booking.NewService(st, st, bus, booking.Options{
		ShopID:         cfg.Shop.ID,
		Location:       loc,
		MaxAdvanceDays: cfg.Booking.MaxAdvanceDays,
		StoreTimeout:   cfg.StoreTimeout(),
	}, &logger)

	seeded, err := svc.SeedSettings(ctx, cfg.Shop.ShopSettings())
	if err != nil {
		logger.Fatal().Err(err).Msg("seed shop settings error")
	}
	if seeded {
		logger.Info().Str("shop_id", cfg.Shop.ID).Msg("Shop settings seeded from config")
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()

		if err := events.NewRedisRelay(bus, rdb, cfg.Redis.Channel, &logger).Start(ctx); err != nil {
			logger.Error().Err(err).Msg("event relay disabled")
		}
		if ttl := cfg.CacheTTL(); ttl > 0 {
			booked := cache.NewBookedTimes(st, rdb, ttl, &logger)
			booked.Attach(bus)
			svc.UseBookedTimesCache(booked)
		}
	}

	appliedShop := cfg.Shop
	if err := config.Watch(ctx, configPath, 30*time.Second, &logger, func(updated *config.Config) {
		current, err := svc.Settings(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("read shop settings error")
			return
		}
		changed := config.ApplyShopChanges(appliedShop, updated.Shop, current)
		if len(changed) == 0 {
			return
		}
		if _, err := svc.UpdateSettings(ctx, current); err != nil {
			logger.Error().Err(err).Strs("fields", changed).Msg("apply shop config error")
			return
		}
		appliedShop = updated.Shop
		logger.Info().Strs("fields", changed).Msg("Shop settings synced from config")
	}); err != nil {
		logger.Warn().Err(err).Msg("config watcher disabled")
	}

	if sqliteDB != nil {
		go database.NewBackupService(sqliteDB, cfg.Backup, &logger).Start(ctx)
	}

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, st, rdb, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	server := api.NewHTTPServer(svc, st, api.Options{
		Port:           cfg.Server.Port,
		APIKey:         cfg.Server.APIKey,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	}, &logger)
	if cfg.Server.APIKey == "" {
		logger.Warn().Msg("server.api_key is empty, admin API is locked")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("HTTP API error")
		}
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("HTTP API shutdown error")
	}
	logger.Info().Msg("Server stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Logging.JSON {
		return zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	return zerolog.New(output).With().Timestamp().Logger()
}

// openStore returns the sqlite handle as well when that backend is used, for backups.
func openStore(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (store, *database.DB, error) {
	switch cfg.Database.Driver {
	case "postgres":
		pg, err := postgres.Open(ctx, cfg.Database.URL, logger)
		if err != nil {
			return nil, nil, err
		}
		return pg, nil, nil
	default:
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			return nil, nil, err
		}
		return db, db, nil
	}
}

func startHealthServer(ctx context.Context, port int, st store, rdb *redis.Client, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if err := st.PingContext(ctxPing); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(ctxPing).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
