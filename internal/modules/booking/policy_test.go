package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"studiobooking/internal/domain"
)

func TestCancellationAllowed(t *testing.T) {
	start := time.Date(2026, 6, 2, 14, 0, 0, 0, time.UTC)
	b := domain.Booking{StartTime: start, EndTime: start.Add(2 * time.Hour)}

	tests := []struct {
		name   string
		now    time.Time
		window int
		want   bool
	}{
		{"well ahead", start.Add(-48 * time.Hour), 24, true},
		{"exactly at the window edge", start.Add(-24 * time.Hour), 24, true},
		{"inside the window", start.Add(-10 * time.Hour), 24, false},
		{"shorter window allows", start.Add(-10 * time.Hour), 2, true},
		{"zero window before start", start.Add(-time.Minute), 0, true},
		{"zero window at start", start, 0, false},
		{"after start", start.Add(time.Hour), 0, false},
		{"after end", start.Add(3 * time.Hour), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CancellationAllowed(b, tt.now, tt.window))
		})
	}
}
