// Command seed fills a development database with rooms and a booking
// history. Bookings go through the booking service so every row satisfies
// the ledger and overlap rules.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"studiobooking/internal/config"
	"studiobooking/internal/database"
	"studiobooking/internal/domain"
	"studiobooking/internal/events"
	"studiobooking/internal/modules/booking"
	jwtsvc "studiobooking/internal/pkg/jwt"
	"studiobooking/internal/pkg/logger"
	"studiobooking/internal/pkg/timewindow"
	"studiobooking/internal/repository"
)

const (
	studios        = 5
	roomsPerStudio = 3
	randomBookings = 40
)

const devOwner int64 = 900

var clients = []int64{101, 102, 103}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.AppEnv})
	ctx := context.Background()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("DB connection failed")
	}
	if err := repository.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("Migrate failed")
	}

	log.Info().Msg("Cleaning old data...")
	db.Exec("DELETE FROM bookings")
	db.Exec("DELETE FROM rooms")
	db.Exec("DELETE FROM studios")

	// ================== STUDIOS & ROOMS ==================
	roomRepo := repository.NewRoomRepository(db)
	var rooms []domain.Room
	for s := int64(1); s <= studios; s++ {
		// the dev owner runs the first studio only
		owner := devOwner
		if s > 1 {
			owner = devOwner + s
		}
		studio := domain.Studio{ID: s, OwnerID: owner, Name: fmt.Sprintf("Studio %d", s)}
		if err := roomRepo.CreateStudio(ctx, &studio); err != nil {
			log.Fatal().Err(err).Msg("Create studio failed")
		}
		for j := 1; j <= roomsPerStudio; j++ {
			room := domain.Room{
				StudioID:        s,
				Name:            fmt.Sprintf("Studio %d Hall %d", s, j),
				PricePerHourMin: float64(5000 + 1000*rand.Intn(10)),
				IsActive:        true,
			}
			if err := roomRepo.Create(ctx, &room); err != nil {
				log.Fatal().Err(err).Msg("Create room failed")
			}
			rooms = append(rooms, room)
		}
	}
	log.Info().Int("studios", studios).Int("rooms", len(rooms)).Msg("Studios and rooms created")

	// ================== BOOKINGS ==================
	// the clock starts in the past so history can be replayed through the
	// state machine
	now := time.Now().UTC().Truncate(time.Hour)
	clock := timewindow.NewFixedClock(now.AddDate(0, 0, -30))
	svc := booking.NewService(
		repository.NewBookingRepository(db),
		roomRepo,
		config.StaticSettings{WindowHours: cfg.CancellationWindowHours},
		clock,
		booking.NewMemoryLocker(cfg.RoomLockTimeout),
		events.LogPublisher{},
		booking.Options{},
	)

	stats := map[domain.BookingStatus]int{}
	conflicts := 0
	for i := 0; i < randomBookings; i++ {
		room := rooms[rand.Intn(len(rooms))]
		day := clock.Now().AddDate(0, 0, 2+rand.Intn(55))
		start := time.Date(day.Year(), day.Month(), day.Day(), 9+rand.Intn(10), 0, 0, 0, time.UTC)
		end := start.Add(time.Duration(1+rand.Intn(3)) * time.Hour)

		b, err := svc.Create(ctx, booking.CreateBookingRequest{
			RoomID:    room.ID,
			ClientID:  clients[rand.Intn(len(clients))],
			StartTime: start,
			EndTime:   end,
			Notes:     fmt.Sprintf("Seed booking %d", i+1),
		})
		if errors.Is(err, booking.ErrConflict) {
			conflicts++
			continue
		}
		if err != nil {
			log.Fatal().Err(err).Msg("Create booking failed")
		}

		status, err := advance(ctx, svc, clock, b, now, cfg.CancellationWindowHours)
		if err != nil {
			log.Fatal().Err(err).Str("booking_id", b.ID).Msg("Advance booking failed")
		}
		stats[status]++
	}
	clock.Set(now)

	log.Info().
		Int("pending", stats[domain.BookingPending]).
		Int("confirmed", stats[domain.BookingConfirmed]).
		Int("completed", stats[domain.BookingCompleted]).
		Int("cancelled", stats[domain.BookingCancelled]).
		Int("skipped_conflicts", conflicts).
		Msg("Bookings created")

	// ================== TOKENS ==================
	j := jwtsvc.New(cfg.JWTSecret, 7*24*time.Hour)
	clientToken, _ := j.GenerateToken(clients[0], "client")
	ownerToken, _ := j.GenerateToken(devOwner, "studio_owner")
	adminToken, _ := j.GenerateToken(1, "admin")
	log.Info().Str("client_token", clientToken).Msg("Dev client token (user 101)")
	log.Info().Str("owner_token", ownerToken).Msg("Dev studio owner token (studio 1)")
	log.Info().Str("admin_token", adminToken).Msg("Dev admin token")
	log.Info().Msg("Seed completed")
}

// advance moves a fresh booking along a random path. Past bookings are
// confirmed and completed, future ones may stay pending, get a deposit or be
// cancelled.
func advance(ctx context.Context, svc *booking.Service, clock *timewindow.FixedClock, b *domain.Booking, now time.Time, windowHours int) (domain.BookingStatus, error) {
	if b.EndTime.Before(now) {
		if _, err := svc.AdjustDeposit(ctx, b.ID, b.TotalPrice/2); err != nil {
			return "", err
		}
		if _, err := svc.Confirm(ctx, b.ID); err != nil {
			return "", err
		}
		saved := clock.Now()
		clock.Set(b.EndTime)
		defer clock.Set(saved)
		if _, err := svc.Complete(ctx, b.ID); err != nil {
			return "", err
		}
		return domain.BookingCompleted, nil
	}

	switch rand.Intn(4) {
	case 0:
		return domain.BookingPending, nil
	case 1:
		if !booking.CancellationAllowed(*b, clock.Now(), windowHours) {
			return domain.BookingPending, nil
		}
		if _, err := svc.Cancel(ctx, b.ID, "Client changed the shoot date"); err != nil {
			return "", err
		}
		return domain.BookingCancelled, nil
	default:
		if _, err := svc.AdjustDeposit(ctx, b.ID, b.TotalPrice/4); err != nil {
			return "", err
		}
		if _, err := svc.Confirm(ctx, b.ID); err != nil {
			return "", err
		}
		return domain.BookingConfirmed, nil
	}
}
