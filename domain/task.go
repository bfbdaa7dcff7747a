package domain

import (
	"strings"
	"time"
)

// Status names the column a task belongs to.
type Status string

const (
	StatusTodo  Status = "todo"
	StatusDoing Status = "doing"
	StatusDone  Status = "done"
)

// DefaultColumns is the column set used when a board is not configured with its own.
var DefaultColumns = []Status{StatusTodo, StatusDoing, StatusDone}

// ParseStatuses converts raw column names to statuses, dropping blanks and duplicates
// while keeping the first occurrence order.
func ParseStatuses(raw []string) []Status {
	out := make([]Status, 0, len(raw))
	seen := make(map[Status]struct{}, len(raw))
	for _, r := range raw {
		s := Status(strings.TrimSpace(r))
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// Task represents a single board item.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Rank        float64   `json:"rank"`
	CreatedAt   time.Time `json:"createdAt"`
}

// TaskFields carries optional task fields for partial updates. Nil fields are left untouched.
type TaskFields struct {
	Title       *string  `json:"title,omitempty"`
	Description *string  `json:"description,omitempty"`
	Status      *Status  `json:"status,omitempty"`
	Rank        *float64 `json:"rank,omitempty"`
}

// Empty reports whether no field is set.
func (f TaskFields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Status == nil && f.Rank == nil
}

// Position places a dragged task relative to an anchor task.
type Position string

const (
	Before Position = "before"
	After  Position = "after"
)

// ParsePosition validates a position hint. Unknown hints yield After together with an
// *InvalidPositionError so callers can decide whether to report or fall back.
func ParsePosition(raw string) (Position, error) {
	switch p := Position(strings.ToLower(strings.TrimSpace(raw))); p {
	case Before, After:
		return p, nil
	default:
		return After, &InvalidPositionError{Value: raw}
	}
}
