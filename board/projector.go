package board

import (
	"cmp"
	"slices"
	"strings"

	"prism-board/domain"
)

// Column is the ordered view of one status group.
type Column struct {
	Status domain.Status `json:"status"`
	Title  string        `json:"title"`
	Count  int           `json:"count"`
	Tasks  []domain.Task `json:"tasks"`
}

// Project returns the tasks with the given status ordered by rank, then creation time,
// then id. It does not modify its input.
func Project(tasks []domain.Task, status domain.Status) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	slices.SortStableFunc(out, compareTasks)
	return out
}

// ProjectAll projects every column in order. Tasks whose status is not listed are omitted.
func ProjectAll(tasks []domain.Task, columns []domain.Status) []Column {
	out := make([]Column, 0, len(columns))
	for _, s := range columns {
		ts := Project(tasks, s)
		out = append(out, Column{Status: s, Title: string(s), Count: len(ts), Tasks: ts})
	}
	return out
}

func compareTasks(a, b domain.Task) int {
	if c := cmp.Compare(a.Rank, b.Rank); c != 0 {
		return c
	}
	if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}
