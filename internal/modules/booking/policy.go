package booking

import (
	"time"

	"studiobooking/internal/domain"
	"studiobooking/internal/pkg/timewindow"
)

// CancellationAllowed reports whether b may still be cancelled at now:
// the booking must start at least windowHours from now. Once the start
// has been reached cancellation is never allowed, whatever the window.
func CancellationAllowed(b domain.Booking, now time.Time, windowHours int) bool {
	if timewindow.ReachedOrPassed(now, b.StartTime) {
		return false
	}
	if windowHours < 0 {
		windowHours = 0
	}
	deadline := b.StartTime.Add(-time.Duration(windowHours) * time.Hour)
	return !now.After(deadline)
}
