package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studiobooking/internal/domain"
)

func hourOn(h int) time.Time {
	return time.Date(2026, 6, 3, h, 0, 0, 0, time.UTC)
}

func iv(id string, from, to int) Interval {
	return Interval{Start: hourOn(from), End: hourOn(to), BookingID: id, Status: domain.BookingPending}
}

func TestAvailabilityIndex_InsertAndQuery(t *testing.T) {
	x := NewAvailabilityIndex()
	require.NoError(t, x.Insert(1, iv("a", 10, 12)))
	require.NoError(t, x.Insert(1, iv("c", 16, 18)))
	require.NoError(t, x.Insert(1, iv("b", 13, 14)))

	assert.True(t, x.Query(1, hourOn(11), hourOn(13)))
	assert.True(t, x.Query(1, hourOn(9), hourOn(20)))
	assert.True(t, x.Query(1, hourOn(17), hourOn(19)))
	assert.False(t, x.Query(1, hourOn(12), hourOn(13)), "touching endpoints do not overlap")
	assert.False(t, x.Query(1, hourOn(14), hourOn(16)))
	assert.False(t, x.Query(2, hourOn(10), hourOn(12)), "rooms are independent")

	busy := x.Busy(1, hourOn(0), hourOn(23))
	require.Len(t, busy, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{busy[0].BookingID, busy[1].BookingID, busy[2].BookingID})
}

func TestAvailabilityIndex_InsertConflict(t *testing.T) {
	x := NewAvailabilityIndex()
	require.NoError(t, x.Insert(1, iv("a", 14, 16)))

	err := x.Insert(1, iv("b", 15, 17))
	var cErr *ConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "a", cErr.ConflictingID)
	assert.True(t, errors.Is(err, ErrConflict))
	assert.Equal(t, 1, x.Len(1))

	require.NoError(t, x.Insert(1, iv("c", 16, 18)))
	require.NoError(t, x.Insert(1, iv("d", 12, 14)))
	assert.Equal(t, 3, x.Len(1))
}

func TestAvailabilityIndex_InsertRejectsEmptyWindow(t *testing.T) {
	x := NewAvailabilityIndex()
	assert.ErrorIs(t, x.Insert(1, iv("a", 14, 14)), ErrValidation)
}

func TestAvailabilityIndex_Remove(t *testing.T) {
	x := NewAvailabilityIndex()
	require.NoError(t, x.Insert(1, iv("a", 10, 12)))
	require.NoError(t, x.Insert(1, iv("b", 12, 14)))

	x.Remove(1, "missing")
	x.Remove(7, "a")
	assert.Equal(t, 2, x.Len(1))

	x.Remove(1, "a")
	assert.False(t, x.Query(1, hourOn(10), hourOn(12)))
	assert.True(t, x.Query(1, hourOn(13), hourOn(15)))

	x.Remove(1, "b")
	assert.Equal(t, 0, x.Len(1))
}

func TestAvailabilityIndex_SetStatus(t *testing.T) {
	x := NewAvailabilityIndex()
	require.NoError(t, x.Insert(1, iv("a", 10, 12)))

	x.SetStatus(1, "a", domain.BookingConfirmed)
	busy := x.Busy(1, hourOn(10), hourOn(11))
	require.Len(t, busy, 1)
	assert.Equal(t, domain.BookingConfirmed, busy[0].Status)
}

func TestAvailabilityIndex_BusyWindow(t *testing.T) {
	x := NewAvailabilityIndex()
	require.NoError(t, x.Insert(1, iv("a", 8, 10)))
	require.NoError(t, x.Insert(1, iv("b", 11, 13)))
	require.NoError(t, x.Insert(1, iv("c", 15, 16)))

	busy := x.Busy(1, hourOn(10), hourOn(15))
	require.Len(t, busy, 1)
	assert.Equal(t, "b", busy[0].BookingID)

	busy[0].BookingID = "mutated"
	assert.Equal(t, "b", x.Busy(1, hourOn(10), hourOn(15))[0].BookingID, "Busy returns a copy")
}

func TestAvailabilityIndex_Replace(t *testing.T) {
	x := NewAvailabilityIndex()
	require.NoError(t, x.Insert(1, iv("old", 9, 10)))

	require.NoError(t, x.Replace(1, []Interval{iv("b", 14, 16), iv("a", 10, 12)}))
	assert.False(t, x.Query(1, hourOn(9), hourOn(10)))
	assert.True(t, x.Query(1, hourOn(11), hourOn(12)))
	assert.Equal(t, 2, x.Len(1))

	err := x.Replace(1, []Interval{iv("a", 10, 12), iv("b", 11, 13)})
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, 2, x.Len(1), "failed replace keeps the previous list")

	require.NoError(t, x.Replace(1, nil))
	assert.Equal(t, 0, x.Len(1))
}
