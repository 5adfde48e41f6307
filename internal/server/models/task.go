package models

import (
	"strings"
	"time"
)

// Task priorities, stored in canonical capitalized form.
const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

// NormalizePriority maps a case-insensitive priority spelling to its
// canonical form. ok is false for values outside the enum.
func NormalizePriority(s string) (priority string, ok bool) {
	switch strings.ToLower(s) {
	case "low":
		return PriorityLow, true
	case "medium":
		return PriorityMedium, true
	case "high":
		return PriorityHigh, true
	default:
		return "", false
	}
}

// Task belongs to exactly one owner; OwnerID and CreatedAt are immutable
// after creation. Completed always holds the canonical boolean form.
type Task struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Priority    string
	DueDate     time.Time
	Completed   bool
	Subtasks    []Subtask
	CreatedAt   time.Time
}

// Subtask is an ordered child item of a Task. The slice is persisted as a
// single JSONB document, so the JSON tags define the storage layout too.
type Subtask struct {
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}
