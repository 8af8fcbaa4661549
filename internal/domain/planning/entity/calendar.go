package entity

// CalendarCell is one displayed day of a month grid
type CalendarCell struct {
	DateKey        string `json:"date_key"` // YYYY-MM-DD in the display zone
	IsCurrentMonth bool   `json:"is_current_month"`
	IsToday        bool   `json:"is_today"`
	Posts          []Post `json:"posts"`
}

// MonthStats counts posts whose zoned date falls inside the reference month
type MonthStats struct {
	ScheduledCount int `json:"scheduled_count"`
	PublishedCount int `json:"published_count"`
	FailedCount    int `json:"failed_count"`
}
