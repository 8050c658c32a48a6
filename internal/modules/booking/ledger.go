package booking

import (
	"math"
	"time"
)

// BillableHours rounds a booking window up to whole hours.
func BillableHours(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	hours := int64(d / time.Hour)
	if d%time.Hour != 0 {
		hours++
	}
	return hours
}

// ComputeTotal prices a window at hourlyRate per started hour.
func ComputeTotal(hourlyRate int64, start, end time.Time) (int64, error) {
	if !start.Before(end) {
		return 0, newValidationError("end_time", "must be after start_time")
	}
	if hourlyRate < 0 {
		return 0, newValidationError("hourly_rate", "must not be negative")
	}
	hours := BillableHours(start, end)
	if hourlyRate > 0 && hours > math.MaxInt64/hourlyRate {
		return 0, newValidationError("end_time", "window too long for hourly rate %d", hourlyRate)
	}
	return hourlyRate * hours, nil
}

// ValidateDeposit enforces 0 <= deposit <= total.
func ValidateDeposit(total, deposit int64) error {
	if deposit < 0 {
		return newValidationError("deposit_amount", "must not be negative")
	}
	if deposit > total {
		return newValidationError("deposit_amount", "must not exceed total price %d", total)
	}
	return nil
}

func Balance(total, deposit int64) int64 {
	return total - deposit
}
