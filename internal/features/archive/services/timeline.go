package services

import (
	"fmt"

	"chatarchive/internal/features/archive/models"
)

// GroupByYear groups months by calendar year, keeping traversal order for
// both the years and the months inside each year.
func GroupByYear(months []models.Month) []models.YearGroup {
	var groups []models.YearGroup
	for _, m := range months {
		if n := len(groups); n > 0 && groups[n-1].Year == m.Year() {
			groups[n-1].Months = append(groups[n-1].Months, m)
			continue
		}
		groups = append(groups, models.YearGroup{Year: m.Year(), Months: []models.Month{m}})
	}
	return groups
}

// MostRecentMonth returns the newest month of a traversal-ordered list
func MostRecentMonth(months []models.Month, order models.SortOrder) (models.Month, bool) {
	if len(months) == 0 {
		return models.Month{}, false
	}
	if order == models.NewestFirst {
		return months[0], true
	}
	return months[len(months)-1], true
}

// MostRecentDay returns the slug of the newest day in days
func MostRecentDay(days []models.Day) string {
	latest := ""
	for _, d := range days {
		if d.Slug > latest {
			latest = d.Slug
		}
	}
	return latest
}

// DayCounterFilename returns the published name of a day's counter script
func DayCounterFilename(day models.Day) string {
	return fmt.Sprintf("day-counter-%s.js", day.Slug)
}

// PlanDayCounters returns the days of a month whose counters must be
// rendered, in traversal order. frontier is the slug of the most recent
// day of the dataset, or "" when it is not in this month.
//
// A counter that is rendered because its file is missing also re-renders
// the last skipped counter before it: that counter was written when its
// day might still have been growing.
func PlanDayCounters(days []models.Day, frontier string, policy SkipPolicy) (render []models.Day, skipped int) {
	var pending *models.Day

	for i := range days {
		day := days[i]
		name := DayCounterFilename(day)

		if policy.ShouldSkip(SkipInput{Kind: KindDayCounter, Filename: name, Frontier: day.Slug == frontier}) {
			pending = &days[i]
			skipped++
			continue
		}

		if pending != nil && (policy.Exists == nil || !policy.Exists(name)) {
			render = append(render, *pending)
			skipped--
		}
		render = append(render, day)
		pending = nil
	}

	return render, skipped
}
