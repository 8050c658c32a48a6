package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studiobooking/internal/domain"
)

const validReason = "client moved the shoot"

var smStart = time.Date(2026, 7, 1, 14, 0, 0, 0, time.UTC)

func bookingIn(status domain.BookingStatus) domain.Booking {
	return domain.Booking{
		ID:            "b-1",
		RoomID:        1,
		StartTime:     smStart,
		EndTime:       smStart.Add(2 * time.Hour),
		TotalPrice:    20000,
		DepositAmount: 5000,
		Status:        status,
	}
}

func TestFire_TransitionTable(t *testing.T) {
	statuses := []domain.BookingStatus{
		domain.BookingPending, domain.BookingConfirmed, domain.BookingCompleted, domain.BookingCancelled,
	}
	evts := []Event{EventConfirm, EventCancel, EventComplete, EventAdjustDeposit, EventCreate}

	want := map[domain.BookingStatus]map[Event]domain.BookingStatus{
		domain.BookingPending: {
			EventConfirm:       domain.BookingConfirmed,
			EventCancel:        domain.BookingCancelled,
			EventAdjustDeposit: domain.BookingPending,
		},
		domain.BookingConfirmed: {
			EventCancel:        domain.BookingCancelled,
			EventComplete:      domain.BookingCompleted,
			EventAdjustDeposit: domain.BookingConfirmed,
		},
	}

	for _, st := range statuses {
		for _, ev := range evts {
			t.Run(string(st)+"/"+string(ev), func(t *testing.T) {
				in := TransitionInput{Reason: validReason, Deposit: 1000, WindowHours: 24, Now: smStart.Add(-48 * time.Hour)}
				if ev == EventComplete {
					in.Now = smStart.Add(3 * time.Hour)
				}
				b := bookingIn(st)

				got, err := Fire(b, ev, in)

				to, allowed := want[st][ev]
				assert.Equal(t, allowed, CanFire(st, ev))
				if !allowed {
					var tErr *InvalidTransitionError
					require.ErrorAs(t, err, &tErr)
					assert.Equal(t, st, tErr.From)
					assert.Equal(t, ev, tErr.Event)
					assert.Equal(t, b, got, "rejected event leaves the booking unchanged")
					return
				}
				require.NoError(t, err)
				assert.Equal(t, to, got.Status)
				assert.Equal(t, in.Now, got.UpdatedAt)
			})
		}
	}
}

func TestFire_CompleteBeforeEnd(t *testing.T) {
	b := bookingIn(domain.BookingConfirmed)

	_, err := Fire(b, EventComplete, TransitionInput{Now: b.EndTime.Add(-time.Minute)})
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.NotEmpty(t, tErr.Reason)

	got, err := Fire(b, EventComplete, TransitionInput{Now: b.EndTime})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCompleted, got.Status)
}

func TestFire_Cancel(t *testing.T) {
	b := bookingIn(domain.BookingPending)
	now := smStart.Add(-48 * time.Hour)

	t.Run("short reason", func(t *testing.T) {
		_, err := Fire(b, EventCancel, TransitionInput{Now: now, WindowHours: 24, Reason: "  too short "})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("inside window", func(t *testing.T) {
		_, err := Fire(b, EventCancel, TransitionInput{Now: smStart.Add(-10 * time.Hour), WindowHours: 24, Reason: validReason})
		var pErr *PolicyDeniedError
		require.ErrorAs(t, err, &pErr)
		assert.Equal(t, 24, pErr.WindowHours)
	})

	t.Run("success", func(t *testing.T) {
		got, err := Fire(b, EventCancel, TransitionInput{Now: now, WindowHours: 24, Reason: "  " + validReason + " "})
		require.NoError(t, err)
		assert.Equal(t, domain.BookingCancelled, got.Status)
		assert.Equal(t, validReason, got.CancellationReason)
		require.NotNil(t, got.CancelledAt)
		assert.Equal(t, now, *got.CancelledAt)
		assert.Empty(t, b.CancellationReason, "input untouched")
	})

	t.Run("second cancel", func(t *testing.T) {
		cancelled, err := Fire(b, EventCancel, TransitionInput{Now: now, WindowHours: 24, Reason: validReason})
		require.NoError(t, err)

		again, err := Fire(cancelled, EventCancel, TransitionInput{Now: now, WindowHours: 24, Reason: "another different reason"})
		assert.ErrorIs(t, err, ErrInvalidStatusTransition)
		assert.Equal(t, validReason, again.CancellationReason)
	})
}

func TestFire_AdjustDeposit(t *testing.T) {
	b := bookingIn(domain.BookingConfirmed)

	got, err := Fire(b, EventAdjustDeposit, TransitionInput{Deposit: 20000})
	require.NoError(t, err)
	assert.Equal(t, int64(20000), got.DepositAmount)
	assert.Equal(t, int64(0), got.Balance())
	assert.Equal(t, domain.BookingConfirmed, got.Status)

	_, err = Fire(b, EventAdjustDeposit, TransitionInput{Deposit: 25000})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = Fire(b, EventAdjustDeposit, TransitionInput{Deposit: -5})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestNewPending(t *testing.T) {
	now := smStart.Add(-time.Hour)
	draft := bookingIn("")
	draft.CancellationReason = "leftover"

	b, err := NewPending(draft, now)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, now, b.CreatedAt)
	assert.Empty(t, b.CancellationReason)

	draft.EndTime = draft.StartTime
	_, err = NewPending(draft, now)
	assert.True(t, errors.Is(err, ErrValidation))

	draft = bookingIn("")
	draft.DepositAmount = draft.TotalPrice + 1
	_, err = NewPending(draft, now)
	assert.True(t, errors.Is(err, ErrValidation))
}
