// Command complete_elapsed marks confirmed bookings whose session has ended
// as completed. Meant to run from cron next to the API.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"studiobooking/internal/config"
	"studiobooking/internal/database"
	"studiobooking/internal/events"
	"studiobooking/internal/modules/booking"
	"studiobooking/internal/pkg/logger"
	"studiobooking/internal/pkg/timewindow"
	"studiobooking/internal/repository"
)

func main() {
	limit := flag.Int("limit", 500, "maximum bookings to complete in one run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.AppEnv})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect failed")
	}

	var locker booking.RoomLocker = booking.NewMemoryLocker(cfg.RoomLockTimeout)
	if cfg.LockBackend != config.LockBackendRedis {
		log.Warn().Msg("In-process room lock: run only while the API is stopped or use LOCK_BACKEND=redis")
	} else {
		rdb, err := database.NewRedis(cfg.RedisURL)
		if err != nil || rdb == nil {
			log.Fatal().Err(err).Msg("redis connect failed")
		}
		defer database.CloseRedis(rdb)
		locker = booking.NewRedisLocker(rdb, cfg.RoomLockTimeout, cfg.RedisLockTTL)
	}

	var publisher events.Publisher = events.LogPublisher{}
	if cfg.AMQPURL != "" {
		amqpPub := events.NewAMQPPublisher(cfg.AMQPURL, cfg.EventsQueue)
		defer amqpPub.Close()
		publisher = amqpPub
	}

	svc := booking.NewService(
		repository.NewBookingRepository(db),
		repository.NewRoomRepository(db),
		config.StaticSettings{WindowHours: cfg.CancellationWindowHours},
		timewindow.SystemClock{},
		locker,
		publisher,
		booking.Options{},
	)

	done, err := svc.CompleteElapsed(ctx, *limit)
	if err != nil {
		log.Error().Err(err).Int("completed", done).Msg("complete elapsed bookings finished with errors")
		os.Exit(1)
	}
	log.Info().Int("completed", done).Msg("complete elapsed bookings finished")
}
