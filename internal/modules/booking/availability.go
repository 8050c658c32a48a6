package booking

import (
	"sort"
	"sync"
	"time"

	"studiobooking/internal/domain"
	"studiobooking/internal/pkg/timewindow"
)

// Interval is an occupied window of a room held by an active booking.
type Interval struct {
	Start     time.Time            `json:"start"`
	End       time.Time            `json:"end"`
	BookingID string               `json:"booking_id"`
	Status    domain.BookingStatus `json:"status"`
}

// AvailabilityIndex keeps, per room, the active bookings' intervals sorted by
// start. Intervals of one room never overlap each other, so ends are sorted
// too and an overlap lookup is a binary search.
//
// Reads are safe from any goroutine. Writers for the same room must be
// serialized by the caller (the service does this with the room guard).
type AvailabilityIndex struct {
	mu    sync.RWMutex
	rooms map[int64][]Interval
}

func NewAvailabilityIndex() *AvailabilityIndex {
	return &AvailabilityIndex{rooms: make(map[int64][]Interval)}
}

// Query reports whether any stored interval of roomID overlaps [start, end).
func (x *AvailabilityIndex) Query(roomID int64, start, end time.Time) bool {
	_, ok := x.firstOverlap(roomID, start, end)
	return ok
}

func (x *AvailabilityIndex) firstOverlap(roomID int64, start, end time.Time) (Interval, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	list := x.rooms[roomID]
	// first interval starting at or after end; only its predecessor can overlap
	i := sort.Search(len(list), func(i int) bool { return !list[i].Start.Before(end) })
	if i == 0 {
		return Interval{}, false
	}
	prev := list[i-1]
	if timewindow.Overlaps(prev.Start, prev.End, start, end) {
		return prev, true
	}
	return Interval{}, false
}

// Insert adds an interval, keeping the room's list sorted.
// It fails with *ConflictError when the window is already taken.
func (x *AvailabilityIndex) Insert(roomID int64, iv Interval) error {
	if !iv.Start.Before(iv.End) {
		return newValidationError("end_time", "must be after start_time")
	}

	x.mu.Lock()
	defer x.mu.Unlock()

	list := x.rooms[roomID]
	i := sort.Search(len(list), func(i int) bool { return !list[i].Start.Before(iv.End) })
	if i > 0 && timewindow.Overlaps(list[i-1].Start, list[i-1].End, iv.Start, iv.End) {
		return &ConflictError{RoomID: roomID, Start: iv.Start, End: iv.End, ConflictingID: list[i-1].BookingID}
	}

	list = append(list, Interval{})
	copy(list[i+1:], list[i:])
	list[i] = iv
	x.rooms[roomID] = list
	return nil
}

// Remove drops the interval held by bookingID. Missing entries are ignored.
func (x *AvailabilityIndex) Remove(roomID int64, bookingID string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	list := x.rooms[roomID]
	for i := range list {
		if list[i].BookingID == bookingID {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(x.rooms, roomID)
		return
	}
	x.rooms[roomID] = list
}

// SetStatus mirrors a status change of an indexed booking.
func (x *AvailabilityIndex) SetStatus(roomID int64, bookingID string, status domain.BookingStatus) {
	x.mu.Lock()
	defer x.mu.Unlock()

	for i, iv := range x.rooms[roomID] {
		if iv.BookingID == bookingID {
			x.rooms[roomID][i].Status = status
			return
		}
	}
}

// Busy returns a copy of the intervals of roomID overlapping [from, to).
func (x *AvailabilityIndex) Busy(roomID int64, from, to time.Time) []Interval {
	x.mu.RLock()
	defer x.mu.RUnlock()

	list := x.rooms[roomID]
	hi := sort.Search(len(list), func(i int) bool { return !list[i].Start.Before(to) })
	lo := sort.Search(hi, func(i int) bool { return list[i].End.After(from) })

	out := make([]Interval, hi-lo)
	copy(out, list[lo:hi])
	return out
}

// Replace swaps the whole interval list of roomID. Intervals that would
// overlap an earlier one are rejected with *ConflictError and nothing changes.
func (x *AvailabilityIndex) Replace(roomID int64, intervals []Interval) error {
	list := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Start.Before(iv.End) {
			list = append(list, iv)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Start.Before(list[j].Start) })
	for i := 1; i < len(list); i++ {
		if list[i].Start.Before(list[i-1].End) {
			return &ConflictError{RoomID: roomID, Start: list[i].Start, End: list[i].End, ConflictingID: list[i-1].BookingID}
		}
	}

	x.mu.Lock()
	defer x.mu.Unlock()
	if len(list) == 0 {
		delete(x.rooms, roomID)
		return nil
	}
	x.rooms[roomID] = list
	return nil
}

func (x *AvailabilityIndex) Len(roomID int64) int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.rooms[roomID])
}

func intervalOf(b domain.Booking) Interval {
	return Interval{Start: b.StartTime, End: b.EndTime, BookingID: b.ID, Status: b.Status}
}
