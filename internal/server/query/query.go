// Package query derives filtered views and aggregate counts from a user's
// task set. It is pure: it operates on tasks already loaded by the task
// repository and never touches storage or the clock on its own — callers
// pass the reference time, which also keeps the day-boundary logic testable.
package query

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/avolkovs/taskdeck/internal/common"
	"github.com/avolkovs/taskdeck/internal/server/models"
)

// Filter selects a task view.
type Filter string

const (
	FilterAll    Filter = "all"
	FilterToday  Filter = "today"
	FilterWeek   Filter = "week"
	FilterHigh   Filter = "high"
	FilterMedium Filter = "medium"
	FilterLow    Filter = "low"
)

// ParseFilter maps a query-string value to a Filter. The empty string means
// no filtering. Unknown values are validation errors.
func ParseFilter(s string) (Filter, error) {
	switch Filter(strings.ToLower(s)) {
	case "":
		return FilterAll, nil
	case FilterAll, FilterToday, FilterWeek, FilterHigh, FilterMedium, FilterLow:
		return Filter(strings.ToLower(s)), nil
	default:
		return "", fmt.Errorf("%w: unknown filter %q", common.ErrorValidation, s)
	}
}

// Apply returns the tasks matching f, ordered by CreatedAt descending.
// Ties keep their original relative order. The input slice is not mutated.
//
// Day-based filters compare calendar days, not instants: each time's own
// year/month/day is taken as-is, so a due date stored at UTC midnight stays
// on its calendar day no matter the server's zone. "today" is the same
// calendar day as now, "week" is [today, today+7] inclusive.
func Apply(tasks []*models.Task, f Filter, now time.Time) []*models.Task {
	today := dateOnly(now)
	weekEnd := today.AddDate(0, 0, 7)

	result := make([]*models.Task, 0, len(tasks))
	for _, t := range tasks {
		due := dateOnly(t.DueDate)
		switch f {
		case FilterToday:
			if !due.Equal(today) {
				continue
			}
		case FilterWeek:
			if due.Before(today) || due.After(weekEnd) {
				continue
			}
		case FilterHigh, FilterMedium, FilterLow:
			if !strings.EqualFold(t.Priority, string(f)) {
				continue
			}
		}
		result = append(result, t)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result
}

// Stats aggregates counts over the unfiltered task set.
type Stats struct {
	Total          int `json:"total"`
	LowPriority    int `json:"lowPriority"`
	MediumPriority int `json:"mediumPriority"`
	HighPriority   int `json:"highPriority"`
	Completed      int `json:"completed"`
	Productivity   int `json:"productivity"`
}

// Compute counts tasks per priority (case-insensitive) and completion, and
// derives productivity = round(completed/total*100). A user with no tasks
// has productivity 0.
func Compute(tasks []*models.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch strings.ToLower(t.Priority) {
		case "low":
			s.LowPriority++
		case "medium":
			s.MediumPriority++
		case "high":
			s.HighPriority++
		}
		if t.Completed {
			s.Completed++
		}
	}
	if s.Total > 0 {
		s.Productivity = int(math.Round(float64(s.Completed) / float64(s.Total) * 100))
	}
	return s
}

// dateOnly pins t's own calendar day to UTC midnight, so days coming from
// different zones compare by date alone.
func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
