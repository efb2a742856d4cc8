package models

import (
	"time"
)

// SortOrder is the direction months, days and messages are traversed in
type SortOrder int

const (
	OldestFirst SortOrder = iota
	NewestFirst
)

// String returns the SQL ordering keyword for the direction
func (o SortOrder) String() string {
	if o == NewestFirst {
		return "DESC"
	}
	return "ASC"
}

// Month is a calendar month that holds at least one message
type Month struct {
	Date  time.Time `json:"date"`
	Slug  string    `json:"slug"`
	Label string    `json:"label"`
	Count int       `json:"count"`
}

// NewMonth builds a Month for the given year and month number
func NewMonth(year int, month time.Month, count int) Month {
	date := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return Month{
		Date:  date,
		Slug:  date.Format("2006-01"),
		Label: date.Format("Jan"),
		Count: count,
	}
}

func (m Month) Year() int {
	return m.Date.Year()
}

func (m Month) MonthNum() int {
	return int(m.Date.Month())
}

// Day is the per-day aggregate of a month. Page is the page number that
// holds the day's first message in traversal order.
type Day struct {
	Date  time.Time `json:"date"`
	Slug  string    `json:"slug"`
	Count int       `json:"count"`
	Page  int       `json:"page"`
}

// YearGroup is one year of the timeline with its months in traversal order
type YearGroup struct {
	Year   int     `json:"year"`
	Months []Month `json:"months"`
}
