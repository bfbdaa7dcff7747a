package board

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"prism-board/domain"
)

// Store holds the canonical task collection of one board. Tasks are kept in a map for
// lookup and a slice preserving insertion order so List is stable between calls.
//
// Store is not safe for concurrent use; Board serializes access to it.
type Store struct {
	tasks map[string]*domain.Task
	order []string
	now   func() time.Time
}

// NewStore creates a store seeded with tasks as-is. Later duplicates of an id are ignored.
func NewStore(tasks ...domain.Task) *Store {
	s := &Store{tasks: make(map[string]*domain.Task, len(tasks)), now: time.Now}
	for _, t := range tasks {
		if _, ok := s.tasks[t.ID]; ok || t.ID == "" {
			continue
		}
		cpy := t
		s.tasks[t.ID] = &cpy
		s.order = append(s.order, t.ID)
	}
	return s
}

// Len returns the number of tasks.
func (s *Store) Len() int { return len(s.order) }

// List returns copies of all tasks in insertion order.
func (s *Store) List() []domain.Task {
	out := make([]domain.Task, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.tasks[id])
	}
	return out
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (domain.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return domain.Task{}, &domain.NotFoundError{ID: id}
	}
	return *t, nil
}

// AddTask inserts a new task. A missing id is generated and a missing creation time is set
// to now. A nil rank places the task at the end of its column; t.Rank is ignored.
func (s *Store) AddTask(t domain.Task, rank *float64) (domain.Task, error) {
	if t.Status == "" {
		return domain.Task{}, fmt.Errorf("%w: status is required", domain.ErrInvalidTask)
	}
	t.ID = strings.TrimSpace(t.ID)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if _, ok := s.tasks[t.ID]; ok {
		return domain.Task{}, fmt.Errorf("%w: %s", domain.ErrDuplicateTask, t.ID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	if rank != nil {
		t.Rank = *rank
	} else {
		t.Rank = s.endRank(t.Status, "")
	}
	cpy := t
	s.tasks[t.ID] = &cpy
	s.order = append(s.order, t.ID)
	return t, nil
}

// UpdateTask merges the provided fields into a task. A status change without an explicit
// rank appends the task to the end of its new column.
func (s *Store) UpdateTask(id string, f domain.TaskFields) error {
	t, ok := s.tasks[id]
	if !ok {
		return &domain.NotFoundError{ID: id}
	}
	if f.Empty() {
		return domain.ErrEmptyUpdate
	}
	if f.Status != nil && *f.Status == "" {
		return fmt.Errorf("%w: status is required", domain.ErrInvalidTask)
	}
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Status != nil && *f.Status != t.Status {
		t.Status = *f.Status
		if f.Rank == nil {
			t.Rank = s.endRank(t.Status, t.ID)
		}
	}
	if f.Rank != nil {
		t.Rank = *f.Rank
	}
	return nil
}

// DeleteTask removes a task and reports whether it was present. Deleting an absent id is
// a no-op since another actor may have removed it first.
func (s *Store) DeleteTask(id string) bool {
	if _, ok := s.tasks[id]; !ok {
		return false
	}
	delete(s.tasks, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// InsertRelative moves taskID immediately before or after anchorID within the anchor's
// column and gives it the anchor's status. Both ids are checked before anything changes.
func (s *Store) InsertRelative(taskID, anchorID string, pos domain.Position) error {
	t, ok := s.tasks[taskID]
	if !ok {
		return &domain.NotFoundError{ID: taskID}
	}
	anchor, ok := s.tasks[anchorID]
	if !ok {
		return &domain.NotFoundError{ID: anchorID}
	}
	if taskID == anchorID {
		return nil
	}
	if pos != domain.Before {
		pos = domain.After
	}

	col := s.column(anchor.Status, taskID)
	idx := indexOf(col, anchorID)
	insertAt := idx
	if pos == domain.After {
		insertAt = idx + 1
	}

	var lo, hi float64
	hasLo, hasHi := insertAt > 0, insertAt < len(col)
	if hasLo {
		lo = col[insertAt-1].Rank
	}
	if hasHi {
		hi = col[insertAt].Rank
	}

	t.Status = anchor.Status
	if r, ok := rankBetween(lo, hi, hasLo, hasHi); ok {
		t.Rank = r
		return nil
	}

	ids := make([]string, 0, len(col)+1)
	for _, c := range col[:insertAt] {
		ids = append(ids, c.ID)
	}
	ids = append(ids, taskID)
	for _, c := range col[insertAt:] {
		ids = append(ids, c.ID)
	}
	s.renumber(ids)
	return nil
}

// Apply executes one intent and reports whether the store changed. Every referenced id is
// validated by the underlying operation before it mutates anything, so a failed intent
// leaves the store unchanged. Deleting an absent task and reordering a task relative to
// itself succeed without a change.
func (s *Store) Apply(cmd domain.Command) (bool, error) {
	switch cmd.Type {
	case domain.CreateTask:
		if cmd.Task == nil {
			return false, fmt.Errorf("%w: create-task without task", domain.ErrInvalidTask)
		}
		_, err := s.AddTask(*cmd.Task, cmd.Rank)
		return err == nil, err
	case domain.UpdateTask:
		if cmd.Fields == nil {
			if _, err := s.Get(cmd.TaskID); err != nil {
				return false, err
			}
			return false, domain.ErrEmptyUpdate
		}
		err := s.UpdateTask(cmd.TaskID, *cmd.Fields)
		return err == nil, err
	case domain.ReorderTask:
		if err := s.InsertRelative(cmd.TaskID, cmd.AnchorID, cmd.Position); err != nil {
			return false, err
		}
		return cmd.TaskID != cmd.AnchorID, nil
	case domain.DeleteTask:
		return s.DeleteTask(cmd.TaskID), nil
	default:
		return false, fmt.Errorf("%w %q", domain.ErrUnknownCommand, cmd.Type)
	}
}

// column returns the ordered tasks of a status, leaving out exclude.
func (s *Store) column(status domain.Status, exclude string) []domain.Task {
	all := make([]domain.Task, 0, len(s.order))
	for _, id := range s.order {
		if id == exclude {
			continue
		}
		all = append(all, *s.tasks[id])
	}
	return Project(all, status)
}

func (s *Store) endRank(status domain.Status, exclude string) float64 {
	col := s.column(status, exclude)
	if len(col) == 0 {
		r, _ := rankBetween(0, 0, false, false)
		return r
	}
	last := col[len(col)-1].Rank
	if r, ok := rankBetween(last, 0, true, false); ok {
		return r
	}
	ids := make([]string, 0, len(col))
	for _, c := range col {
		ids = append(ids, c.ID)
	}
	s.renumber(ids)
	return float64(len(col)+1) * rankStep
}

// renumber spaces the given tasks evenly in the given order.
func (s *Store) renumber(ids []string) {
	for i, id := range ids {
		s.tasks[id].Rank = float64(i+1) * rankStep
	}
}

func indexOf(tasks []domain.Task, id string) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
