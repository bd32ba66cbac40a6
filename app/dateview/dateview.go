// Package dateview selects the tasks that fall into a day, week, month or year.
package dateview

import (
	"time"

	"todo-share/app/models"
)

// Filter returns the tasks whose date falls in the same view period as ref.
// Calendar fields of ref are read in ref's own location. Weeks start on Monday.
// An unrecognized view returns every task. Input order is preserved and the
// result is always a new slice.
func Filter(tasks []models.Task, view models.View, ref time.Time) []models.Task {
	out := make([]models.Task, 0, len(tasks))
	match, ok := matcher(view, civil(ref))
	if !ok {
		return append(out, tasks...)
	}
	for _, t := range tasks {
		day, err := t.Day()
		if err != nil {
			continue
		}
		if match(day) {
			out = append(out, t)
		}
	}
	return out
}

// Known reports whether view has a filtering rule.
func Known(view models.View) bool {
	_, ok := matcher(view, time.Time{})
	return ok
}

func matcher(view models.View, ref time.Time) (func(time.Time) bool, bool) {
	switch view {
	case models.ViewDay:
		return func(d time.Time) bool { return d.Equal(ref) }, true
	case models.ViewWeek:
		start := weekStart(ref)
		return func(d time.Time) bool { return weekStart(d).Equal(start) }, true
	case models.ViewMonth:
		return func(d time.Time) bool {
			return d.Year() == ref.Year() && d.Month() == ref.Month()
		}, true
	case models.ViewYear:
		return func(d time.Time) bool { return d.Year() == ref.Year() }, true
	}
	return nil, false
}

// civil drops the clock and location, keeping the calendar day as seen in t's location.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// weekStart returns the Monday on or before the civil day d.
func weekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}
