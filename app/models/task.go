package models

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the canonical textual form of a task date.
const DateLayout = "2006-01-02"

// ErrEmptyText is returned by NormalizeText for blank task text.
var ErrEmptyText = errors.New("task text is empty")

// Priority is purely descriptive; nothing filters or sorts on it.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// View is the granularity used to select visible tasks.
type View string

const (
	ViewDay   View = "day"
	ViewWeek  View = "week"
	ViewMonth View = "month"
	ViewYear  View = "year"
)

// Task represents a single todo item.
type Task struct {
	ID        string   `json:"id"`
	Text      string   `json:"text"`
	Completed bool     `json:"completed"`
	CreatedAt int64    `json:"createdAt"`
	Date      string   `json:"date"`
	Priority  Priority `json:"priority"`
	Category  string   `json:"category,omitempty"`
}

// Day parses the stored date.
func (t Task) Day() (time.Time, error) {
	return time.Parse(DateLayout, t.Date)
}

// TaskUpdate carries the fields to merge into an existing task.
// Nil fields are left untouched.
type TaskUpdate struct {
	Text      *string    `json:"text,omitempty"`
	Completed *bool      `json:"completed,omitempty"`
	Date      *time.Time `json:"-"`
	Priority  *Priority  `json:"priority,omitempty"`
	Category  *string    `json:"category,omitempty"`
}

// FormatDate returns the canonical form of the calendar day of d, taken in d's location.
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// ParseDate parses a canonical YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

// NormalizeText trims text and rejects it if nothing is left.
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	return text, nil
}

// Partition splits tasks into active and completed, keeping their order.
func Partition(tasks []Task) (active, completed []Task) {
	active = []Task{}
	completed = []Task{}
	for _, t := range tasks {
		if t.Completed {
			completed = append(completed, t)
		} else {
			active = append(active, t)
		}
	}
	return active, completed
}
