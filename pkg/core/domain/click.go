package domain

import "time"

// ClickEvent represents a single redirect through a short link
type ClickEvent struct {
	ID        string    `json:"id"`
	LinkID    string    `json:"link_id"`
	Timestamp time.Time `json:"timestamp"`
	UserAgent string    `json:"user_agent"`
}

// DateRange is an inclusive [From, To] window of UTC instants.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains reports whether t falls inside the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// Summary is the total click count of a link over a range
type Summary struct {
	Total int64 `json:"total"`
}

// DailyCount is one UTC calendar day bucket
type DailyCount struct {
	Day   string `json:"day"` // YYYY-MM-DD
	Count int64  `json:"count"`
}

// UserAgentCount is the number of clicks sharing one raw user agent string
type UserAgentCount struct {
	UserAgent string
	Count     int64
}

type BrowserCount struct {
	Browser string `json:"browser"`
	Count   int64  `json:"count"`
}

// DayLayout formats the day of a DailyCount.
const DayLayout = "2006-01-02"
