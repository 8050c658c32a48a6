package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"studiobooking/internal/domain"
	"studiobooking/internal/events"
	"studiobooking/internal/pkg/logger"
	"studiobooking/internal/pkg/timewindow"
	"studiobooking/internal/pkg/validator"
)

var (
	// bounds used to load every active booking of a room
	farPast   = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	farFuture = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
)

const (
	publishTimeout = 5 * time.Second
	rebuildWorkers = 8

	defaultPageSize = 20
	maxPageSize     = 100
)

type Options struct {
	// RefreshOnLock reloads a room's intervals from the repository every time
	// its guard is taken, and serves calendar reads from the repository.
	// Needed when several instances share one database.
	RefreshOnLock bool
	// WorkingHours feeds Availability. Nil means every studio keeps the
	// default 09:00-21:00 day.
	WorkingHours WorkingHoursProvider
}

type Service struct {
	bookings  BookingRepository
	rooms     RoomCatalog
	settings  SettingsProvider
	clock     timewindow.Clock
	locker    RoomLocker
	publisher EventPublisher
	index     *AvailabilityIndex
	opts      Options
	newID     func() string
}

func NewService(
	bookings BookingRepository,
	rooms RoomCatalog,
	settings SettingsProvider,
	clock timewindow.Clock,
	locker RoomLocker,
	publisher EventPublisher,
	opts Options,
) *Service {
	if clock == nil {
		clock = timewindow.SystemClock{}
	}
	return &Service{
		bookings:  bookings,
		rooms:     rooms,
		settings:  settings,
		clock:     clock,
		locker:    locker,
		publisher: publisher,
		index:     NewAvailabilityIndex(),
		opts:      opts,
		newID:     uuid.NewString,
	}
}

// Index exposes the in-memory calendar for read-only use.
func (s *Service) Index() *AvailabilityIndex {
	return s.index
}

// withRoom runs fn inside the room's critical section.
func (s *Service) withRoom(ctx context.Context, roomID int64, fn func() error) error {
	unlock, err := s.locker.Lock(ctx, roomID)
	if err != nil {
		return err
	}
	defer unlock()

	// the caller may have given up while we waited
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.opts.RefreshOnLock {
		if err := s.loadRoom(ctx, roomID); err != nil {
			return err
		}
	}
	return fn()
}

func (s *Service) Create(ctx context.Context, req CreateBookingRequest) (*domain.Booking, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, fieldsError(errs)
	}
	if !req.StartTime.Before(req.EndTime) {
		return nil, newValidationError("end_time", "must be after start_time")
	}
	if req.StartTime.Before(s.clock.Now()) {
		return nil, newValidationError("start_time", "must not be in the past")
	}

	room, err := s.rooms.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}

	start, end := req.StartTime.UTC(), req.EndTime.UTC()
	total, err := ComputeTotal(room.HourlyRate, start, end)
	if err != nil {
		return nil, err
	}
	if err := ValidateDeposit(total, req.DepositAmount); err != nil {
		return nil, err
	}

	draft := domain.Booking{
		ID:            s.newID(),
		RoomID:        req.RoomID,
		StudioID:      room.StudioID,
		ClientID:      req.ClientID,
		StartTime:     start,
		EndTime:       end,
		TotalPrice:    total,
		DepositAmount: req.DepositAmount,
		Notes:         req.Notes,
	}

	var created domain.Booking
	err = s.withRoom(ctx, req.RoomID, func() error {
		if iv, taken := s.index.firstOverlap(req.RoomID, start, end); taken {
			return &ConflictError{RoomID: req.RoomID, Start: start, End: end, ConflictingID: iv.BookingID}
		}

		b, err := NewPending(draft, s.clock.Now())
		if err != nil {
			return err
		}
		if err := s.bookings.Save(ctx, &b); err != nil {
			return err
		}
		if err := s.index.Insert(b.RoomID, intervalOf(b)); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "Booking created",
		"booking_id", created.ID, "room_id", created.RoomID, "total_price", created.TotalPrice)
	s.publish(ctx, events.BookingCreated, created)
	return &created, nil
}

func (s *Service) Confirm(ctx context.Context, id string) (*domain.Booking, error) {
	return s.apply(ctx, id, EventConfirm, TransitionInput{}, events.BookingConfirmed)
}

func (s *Service) Complete(ctx context.Context, id string) (*domain.Booking, error) {
	return s.apply(ctx, id, EventComplete, TransitionInput{}, events.BookingCompleted)
}

func (s *Service) Cancel(ctx context.Context, id, reason string) (*domain.Booking, error) {
	return s.apply(ctx, id, EventCancel, TransitionInput{Reason: reason}, events.BookingCancelled)
}

func (s *Service) AdjustDeposit(ctx context.Context, id string, deposit int64) (*domain.Booking, error) {
	return s.apply(ctx, id, EventAdjustDeposit, TransitionInput{Deposit: deposit}, events.BookingDepositUpdated)
}

// apply runs one state machine event against the stored booking under its
// room guard, then persists the result and mirrors it in the index.
func (s *Service) apply(ctx context.Context, id string, event Event, in TransitionInput, evType events.Type) (*domain.Booking, error) {
	// room ids never change, so the unguarded read is only used to pick the lock
	current, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var updated domain.Booking
	err = s.withRoom(ctx, current.RoomID, func() error {
		b, err := s.bookings.GetByID(ctx, id)
		if err != nil {
			return err
		}

		in.Now = s.clock.Now()
		if s.settings != nil {
			in.WindowHours = s.settings.CancellationWindowHours()
		}
		next, err := Fire(*b, event, in)
		if err != nil {
			return err
		}
		if err := s.bookings.Save(ctx, &next); err != nil {
			return err
		}

		switch {
		case !next.IsActive():
			s.index.Remove(next.RoomID, next.ID)
		case next.Status != b.Status:
			s.index.SetStatus(next.RoomID, next.ID, next.Status)
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogInfo(ctx, "Booking updated",
		"booking_id", updated.ID, "event", event, "status", updated.Status, "balance", updated.Balance())
	s.publish(ctx, evType, updated)
	return &updated, nil
}

// publish runs after the room guard is released. Failures are only logged.
func (s *Service) publish(ctx context.Context, t events.Type, b domain.Booking) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := s.publisher.Publish(pubCtx, events.NewBookingEvent(t, b, s.clock.Now())); err != nil {
		logger.LogError(ctx, err, "Failed to publish booking event", "booking_id", b.ID, "type", t)
	}
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

// StudioOwner returns the user running studioID, 0 when nobody does.
func (s *Service) StudioOwner(ctx context.Context, studioID int64) (int64, error) {
	return s.rooms.StudioOwner(ctx, studioID)
}

func (s *Service) ListForClient(ctx context.Context, clientID int64, limit, offset int) ([]domain.Booking, error) {
	limit, offset = page(limit, offset)
	return s.bookings.ListByClient(ctx, clientID, limit, offset)
}

func (s *Service) ListForStudio(ctx context.Context, studioID int64, limit, offset int) ([]domain.Booking, error) {
	limit, offset = page(limit, offset)
	return s.bookings.ListByStudio(ctx, studioID, limit, offset)
}

func page(limit, offset int) (int, int) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// BusySlots lists the occupied windows of a room overlapping [from, to).
func (s *Service) BusySlots(ctx context.Context, roomID int64, from, to time.Time) ([]Interval, error) {
	if !from.Before(to) {
		return nil, newValidationError("to", "must be after from")
	}
	return s.busy(ctx, roomID, from, to)
}

// busy reads from the local index unless other instances may write the same
// rooms, in which case only the repository is current.
func (s *Service) busy(ctx context.Context, roomID int64, from, to time.Time) ([]Interval, error) {
	if !s.opts.RefreshOnLock {
		return s.index.Busy(roomID, from, to), nil
	}
	list, err := s.bookings.ListActiveOverlapping(ctx, roomID, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]Interval, 0, len(list))
	for _, b := range list {
		out = append(out, intervalOf(b))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// Availability returns booked and free slots of a room for one UTC day,
// bounded by the studio's working hours.
func (s *Service) Availability(ctx context.Context, roomID int64, date string) (*AvailabilityResponse, error) {
	day, err := time.Parse("2006-01-02", date)
	if err != nil {
		return nil, newValidationError("date", "must be YYYY-MM-DD")
	}
	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	wd := domain.DefaultWorkingDay(int(day.Weekday()))
	if s.opts.WorkingHours != nil {
		if wd, err = s.opts.WorkingHours.WorkingDay(ctx, room.StudioID, day.Weekday()); err != nil {
			return nil, err
		}
	}

	res := &AvailabilityResponse{
		RoomID:       roomID,
		Date:         date,
		WorkingHours: WorkingHours{Open: wd.OpenTime, Close: wd.CloseTime},
		BookedSlots:  []Interval{},
		FreeSlots:    []timewindow.Window{},
	}
	open, okOpen := clockOn(day, wd.OpenTime)
	close, okClose := clockOn(day, wd.CloseTime)
	if wd.IsClosed || !okOpen || !okClose || !open.Before(close) {
		res.Closed = true
		return res, nil
	}

	if res.BookedSlots, err = s.busy(ctx, roomID, open, close); err != nil {
		return nil, err
	}
	busy := make([]timewindow.Window, 0, len(res.BookedSlots))
	for _, iv := range res.BookedSlots {
		busy = append(busy, timewindow.Window{Start: iv.Start, End: iv.End})
	}
	res.FreeSlots = timewindow.Subtract(open, close, busy)
	return res, nil
}

// clockOn places an "HH:MM" time of day on day's date in UTC.
func clockOn(day time.Time, hhmm string) (time.Time, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), true
}

// RebuildIndex loads every active booking from the repository. Call it once
// on startup before serving requests.
func (s *Service) RebuildIndex(ctx context.Context) error {
	roomIDs, err := s.bookings.ActiveRoomIDs(ctx)
	if err != nil {
		return fmt.Errorf("list active rooms: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildWorkers)
	for _, roomID := range roomIDs {
		roomID := roomID
		g.Go(func() error {
			return s.loadRoom(gctx, roomID)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger.LogInfo(ctx, "Availability index rebuilt", "rooms", len(roomIDs))
	return nil
}

func (s *Service) loadRoom(ctx context.Context, roomID int64) error {
	list, err := s.bookings.ListActiveOverlapping(ctx, roomID, farPast, farFuture)
	if err != nil {
		return fmt.Errorf("load room %d: %w", roomID, err)
	}
	intervals := make([]Interval, 0, len(list))
	for _, b := range list {
		intervals = append(intervals, intervalOf(b))
	}
	return s.index.Replace(roomID, intervals)
}

// CompleteElapsed completes confirmed bookings whose end has passed.
// Bookings that changed concurrently are skipped.
func (s *Service) CompleteElapsed(ctx context.Context, limit int) (int, error) {
	list, err := s.bookings.ListConfirmedEndedBefore(ctx, s.clock.Now(), limit)
	if err != nil {
		return 0, err
	}

	done := 0
	var errs []error
	for _, b := range list {
		if _, err := s.Complete(ctx, b.ID); err != nil {
			if errors.Is(err, ErrInvalidStatusTransition) {
				continue
			}
			errs = append(errs, fmt.Errorf("complete %s: %w", b.ID, err))
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func fieldsError(fields map[string]string) *ValidationError {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	name := names[0]
	return newValidationError(name, "failed on '%s'", fields[name])
}
