package domain

// WorkingDay is one weekday of a studio schedule. Times are "HH:MM" in UTC.
type WorkingDay struct {
	DayOfWeek int    `json:"day_of_week"` // 0 = Sunday
	OpenTime  string `json:"open_time"`
	CloseTime string `json:"close_time"`
	IsClosed  bool   `json:"is_closed"`
}

// DefaultWorkingDay is used for studios without a stored schedule.
func DefaultWorkingDay(day int) WorkingDay {
	return WorkingDay{DayOfWeek: day, OpenTime: "09:00", CloseTime: "21:00"}
}
