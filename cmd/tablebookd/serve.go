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

	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"table-booking-backend/config"
	"table-booking-backend/internal/api"
	"table-booking-backend/internal/auth"
	"table-booking-backend/internal/availability"
	"table-booking-backend/internal/booking"
	"table-booking-backend/internal/db"
	"table-booking-backend/internal/mw"
	"table-booking-backend/internal/store"
	"table-booking-backend/internal/sweeper"
)

// limiterIdleTTL is how long a client's rate bucket is kept after its last
// request.
const limiterIdleTTL = 10 * time.Minute

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the reservation sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	loc, err := time.LoadLocation(cfg.Booking.Timezone)
	if err != nil {
		return fmt.Errorf("invalid booking.timezone %q: %w", cfg.Booking.Timezone, err)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)

	locker, closeLocker, err := newLocker(ctx, cfg.Lock)
	if err != nil {
		return err
	}
	defer closeLocker()

	tokens := auth.NewTokens(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	accounts := auth.NewService(appStore, auth.NewHasher(cfg.Auth.BcryptCost), tokens)
	coordinator := booking.NewCoordinator(appStore, locker, booking.Options{
		Location:    loc,
		LockTimeout: cfg.Booking.LockTimeout,
		Policy:      availability.Policy{MinGuests: cfg.Booking.MinGuests, MaxGuests: cfg.Booking.MaxGuests},
	})

	// Initialize and run the sweeper in the background with the store
	sweeperSvc := sweeper.NewService(cfg.Sweeper, appStore, loc)
	go sweeperSvc.Run(ctx)

	handler := api.NewHandler(api.Deps{
		Catalog:      appStore,
		Coordinator:  coordinator,
		Accounts:     accounts,
		Cache:        mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second),
		CookieName:   cfg.Auth.CookieName,
		SecureCookie: cfg.Auth.SecureCookie,
	})

	limiter := mw.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	go limiter.Run(ctx, time.Minute, limiterIdleTTL)

	router := api.NewRouter(handler, api.RouterOptions{
		Gate:           tokens,
		CookieName:     cfg.Auth.CookieName,
		Limiter:        limiter,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
	})

	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           corsHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	logger.Println("Server gracefully stopped")
	return nil
}

// newLocker builds the per-restaurant lock backend.
func newLocker(ctx context.Context, cfg config.LockConfig) (booking.Locker, func(), error) {
	switch cfg.Backend {
	case "memory", "":
		logger.Println("using in-process restaurant locks")
		return booking.NewKeyedMutex(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Printf("using redis restaurant locks at %s", cfg.RedisAddr)
		locker := booking.NewRedisLocker(client,
			time.Duration(cfg.TTLSeconds)*time.Second,
			time.Duration(cfg.RetryIntervalMS)*time.Millisecond)
		return locker, func() { client.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported lock backend %q", cfg.Backend)
	}
}
