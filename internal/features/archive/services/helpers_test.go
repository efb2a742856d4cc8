package services

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"chatarchive/internal/core"
	"chatarchive/internal/features/archive/models"
)

// memSource is an in-memory Source over messages sorted by id
type memSource struct {
	messages []models.Message
}

func newMemSource(messages ...models.Message) *memSource {
	s := &memSource{messages: append([]models.Message(nil), messages...)}
	sort.Slice(s.messages, func(i, j int) bool { return s.messages[i].ID < s.messages[j].ID })
	return s
}

func (s *memSource) add(messages ...models.Message) {
	s.messages = append(s.messages, messages...)
	sort.Slice(s.messages, func(i, j int) bool { return s.messages[i].ID < s.messages[j].ID })
}

func (s *memSource) inMonth(year, month int) []models.Message {
	var out []models.Message
	for _, m := range s.messages {
		if m.Date.Year() == year && int(m.Date.Month()) == month {
			out = append(out, m)
		}
	}
	return out
}

func (s *memSource) ListMonths(_ context.Context, order models.SortOrder) ([]models.Month, error) {
	counts := map[string]int{}
	var keys []string
	for _, m := range s.messages {
		key := m.Date.Format("2006-01")
		if _, ok := counts[key]; !ok {
			keys = append(keys, key)
		}
		counts[key]++
	}
	sort.Strings(keys)
	if order == models.NewestFirst {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	}

	months := make([]models.Month, 0, len(keys))
	for _, key := range keys {
		date, _ := time.Parse("2006-01", key)
		months = append(months, models.NewMonth(date.Year(), date.Month(), counts[key]))
	}
	return months, nil
}

func (s *memSource) ListDays(_ context.Context, year, month int, order models.SortOrder, perPage int) ([]models.Day, error) {
	var days []models.Day
	for _, m := range s.inMonth(year, month) {
		slug := m.Date.Format("2006-01-02")
		if n := len(days); n > 0 && days[n-1].Slug == slug {
			days[n-1].Count++
			continue
		}
		date, _ := time.Parse("2006-01-02", slug)
		days = append(days, models.Day{Date: date, Slug: slug, Count: 1})
	}
	if order == models.NewestFirst {
		for i, j := 0, len(days)-1; i < j; i, j = i+1, j-1 {
			days[i], days[j] = days[j], days[i]
		}
	}

	total := 0
	for _, d := range days {
		total += d.Count
	}
	pages := TotalPages(total, perPage)
	seen := 0
	for i := range days {
		window := seen/perPage + 1
		if order == models.NewestFirst {
			days[i].Page = pages + 1 - window
		} else {
			days[i].Page = window
		}
		seen += days[i].Count
	}
	return days, nil
}

func (s *memSource) CountMessages(_ context.Context, year, month int) (int, error) {
	return len(s.inMonth(year, month)), nil
}

func (s *memSource) ListMessages(_ context.Context, year, month int, order models.SortOrder, cursor int64, limit int) ([]models.Message, error) {
	all := s.inMonth(year, month)
	var out []models.Message
	if order == models.NewestFirst {
		for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
			if all[i].ID < cursor {
				out = append(out, all[i])
			}
		}
		return out, nil
	}
	for _, m := range all {
		if len(out) == limit {
			break
		}
		if m.ID > cursor {
			out = append(out, m)
		}
	}
	return out, nil
}

// monthMessages returns count messages in the given month with ids
// starting at firstID, one per hour from the first of the month.
func monthMessages(year int, month time.Month, firstID int64, count int) []models.Message {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Message, count)
	for i := range out {
		id := firstID + int64(i)
		out[i] = models.Message{
			ID:      id,
			Type:    "message",
			Date:    start.Add(time.Duration(i) * time.Hour),
			Content: fmt.Sprintf("message %d", id),
			User:    models.User{ID: 1, Username: "ann", FirstName: "Ann"},
		}
	}
	return out
}

func ids(messages []models.Message) []int64 {
	out := make([]int64, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func testLogger(t *testing.T) *core.Logger {
	t.Helper()
	return core.NewNopLogger()
}
