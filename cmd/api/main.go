package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"studiobooking/internal/config"
	"studiobooking/internal/database"
	"studiobooking/internal/events"
	"studiobooking/internal/middleware"
	"studiobooking/internal/modules/booking"
	jwtsvc "studiobooking/internal/pkg/jwt"
	"studiobooking/internal/pkg/logger"
	"studiobooking/internal/pkg/timewindow"
	"studiobooking/internal/realtime"
	"studiobooking/internal/repository"
)

const tokenTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.AppEnv})

	log.Info().
		Str("env", cfg.AppEnv).
		Str("port", cfg.Port).
		Str("lock_backend", cfg.LockBackend).
		Msg("Starting studio booking API")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	locker, lockerCleanup, err := newLocker(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up room locker")
	}
	defer lockerCleanup()

	rooms := repository.NewRoomRepository(db)
	hub := realtime.NewHub(rooms)
	defer hub.Close()

	var broker events.Publisher = events.LogPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue)
		defer func() {
			if err := amqpPub.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close AMQP publisher")
			}
		}()
		broker = amqpPub
	}

	j := jwtsvc.New(cfg.JWTSecret, tokenTTL)
	bookingService := booking.NewService(
		repository.NewBookingRepository(db),
		rooms,
		config.StaticSettings{WindowHours: cfg.CancellationWindowHours},
		timewindow.SystemClock{},
		locker,
		events.Fanout{broker, hub},
		booking.Options{
			RefreshOnLock: cfg.LockBackend == config.LockBackendRedis,
			WorkingHours:  repository.NewStudioWorkingHoursRepository(db),
		},
	)
	if err := bookingService.RebuildIndex(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to rebuild availability index")
	}

	router := newRouter(cfg, db, j, bookingService, hub)
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		hub.Close()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		os.Exit(1)
	}
	log.Info().Msg("Server exited properly")
}

// newLocker picks the room guard. Redis is required once more than one
// instance serves the same database.
func newLocker(cfg *config.Config) (booking.RoomLocker, func(), error) {
	if cfg.LockBackend != config.LockBackendRedis {
		return booking.NewMemoryLocker(cfg.RoomLockTimeout), func() {}, nil
	}

	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	if rdb == nil {
		return nil, nil, errors.New("LOCK_BACKEND=redis requires REDIS_URL")
	}
	return booking.NewRedisLocker(rdb, cfg.RoomLockTimeout, cfg.RedisLockTTL), func() { database.CloseRedis(rdb) }, nil
}

func newRouter(cfg *config.Config, db *gorm.DB, j *jwtsvc.Service, svc *booking.Service, hub *realtime.Hub) *gin.Engine {
	if config.IsProdLike(cfg.AppEnv) {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowedOrigins),
	)

	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbState := "ok"
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			dbState = "unavailable"
		}
		c.JSON(status, gin.H{"status": dbState})
	})

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	bookingHandler := booking.NewHandler(svc)
	wsHandler := realtime.NewHandler(hub, j, middleware.AllowedOrigins(cfg.CORSAllowedOrigins))

	v1 := r.Group("/api/v1")
	{
		public := v1.Group("")
		public.Use(limiter.Middleware())
		bookingHandler.RegisterPublicRoutes(public)
		wsHandler.RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(j), limiter.Middleware())
		bookingHandler.RegisterRoutes(protected)
	}

	return r
}
