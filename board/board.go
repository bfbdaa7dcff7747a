package board

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// IntentSink receives intents after a board has applied them. Publish is called after the
// board lock is released, so a slow sink never stalls gestures. Command.Timestamp orders
// intents that race to the sink.
type IntentSink interface {
	Publish(ctx context.Context, boardID string, cmds []domain.Command) error
}

// DropResult reports the outcome of a drop. Reason is set when nothing was applied.
type DropResult struct {
	Applied bool            `json:"applied"`
	Command *domain.Command `json:"command,omitempty"`
	Reason  string          `json:"reason,omitempty"`
}

const (
	reasonNoTarget      = "no-target"
	reasonNoop          = "no-op"
	reasonStale         = "stale"
	reasonUnknownColumn = "unknown-column"
)

// Board owns the task store, drag session and column titles of one board. All state
// changes are serialized by a single mutex, so gestures and mutations observe one logical
// thread. Publishing to the sink happens outside it.
type Board struct {
	id      string
	mu      sync.Mutex
	store   *Store
	session DragSession
	columns []domain.Status
	titles  map[domain.Status]*ColumnTitle
	sink    IntentSink
	log     *log.Logger
	version uint64
}

// New creates a board. An empty column list falls back to domain.DefaultColumns.
func New(id string, columns []domain.Status, tasks []domain.Task, sink IntentSink, logger *log.Logger) *Board {
	if len(columns) == 0 {
		columns = domain.DefaultColumns
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	b := &Board{
		id:      id,
		store:   NewStore(tasks...),
		columns: slices.Clone(columns),
		titles:  make(map[domain.Status]*ColumnTitle, len(columns)),
		sink:    sink,
		log:     logger,
	}
	for _, c := range b.columns {
		b.titles[c] = NewColumnTitle(string(c))
	}
	for _, t := range b.store.List() {
		if !b.hasColumn(t.Status) {
			logger.WithFields(log.Fields{"board": id, "task": t.ID, "status": t.Status}).Warn("task status is not a board column")
		}
	}
	return b
}

func (b *Board) ID() string { return b.id }

// Version increments on every applied mutation.
func (b *Board) Version() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

// Tasks returns all tasks in insertion order.
func (b *Board) Tasks() []domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.List()
}

// Len returns the number of tasks.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.store.Len()
}

// Columns projects every column with its committed title, along with the version the
// projection was taken at.
func (b *Board) Columns() ([]Column, uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cols := ProjectAll(b.store.List(), b.columns)
	for i := range cols {
		cols[i].Title = b.titles[cols[i].Status].Display()
	}
	return cols, b.version
}

// Column projects a single column.
func (b *Board) Column(status domain.Status) ([]domain.Task, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasColumn(status) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownColumn, status)
	}
	return Project(b.store.List(), status), nil
}

// StartDrag begins a gesture on taskID.
func (b *Board) StartDrag(taskID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.store.Get(taskID); err != nil {
		return err
	}
	b.session.Start(taskID)
	return nil
}

// HoverColumn records the pointer over a column's empty area.
func (b *Board) HoverColumn(status domain.Status) (DragView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.hasColumn(status) {
		return b.session.View(), fmt.Errorf("%w: %s", domain.ErrUnknownColumn, status)
	}
	b.session.HoverColumn(status)
	return b.session.View(), nil
}

// HoverTask records the pointer over targetID. The target's column is taken from the store.
func (b *Board) HoverTask(targetID string, pointerY float64, bounds Bounds) (DragView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	target, err := b.store.Get(targetID)
	if err != nil {
		return b.session.View(), err
	}
	b.session.HoverTask(target.ID, target.Status, pointerY, bounds)
	return b.session.View(), nil
}

// LeaveTask forwards a task leave event to the session.
func (b *Board) LeaveTask(targetID string, left, entered ElementPath) DragView {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.LeaveTask(targetID, left, entered)
	return b.session.View()
}

// LeaveColumn forwards a column leave event to the session.
func (b *Board) LeaveColumn(status domain.Status, left, entered ElementPath) DragView {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.LeaveColumn(status, left, entered)
	return b.session.View()
}

// EndDrag cancels the gesture without mutating anything.
func (b *Board) EndDrag() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.session.End()
}

// DragView returns the current session snapshot.
func (b *Board) DragView() DragView {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.session.View()
}

// Drop completes the gesture tracked by the session. Stale or targetless drops are not
// errors: they produce an unapplied result and leave the store untouched.
func (b *Board) Drop(ctx context.Context) (DropResult, error) {
	b.mu.Lock()
	d, ok := b.session.Drop()
	if !ok {
		b.mu.Unlock()
		return DropResult{Reason: reasonNoTarget}, nil
	}
	res, err := b.resolveLocked(d)
	b.mu.Unlock()
	return b.published(ctx, res, err)
}

// DropOn completes a gesture described entirely by d, discarding the session.
func (b *Board) DropOn(ctx context.Context, d Drop) (DropResult, error) {
	b.mu.Lock()
	b.session.End()
	res, err := b.resolveLocked(d)
	b.mu.Unlock()
	return b.published(ctx, res, err)
}

func (b *Board) published(ctx context.Context, res DropResult, err error) (DropResult, error) {
	if err == nil && res.Applied {
		b.publish(ctx, *res.Command)
	}
	return res, err
}

func (b *Board) resolveLocked(d Drop) (DropResult, error) {
	fields := log.Fields{"board": b.id, "dragged": d.DraggedID, "target": d.TargetID, "column": d.TargetColumn}
	if d.TargetID == "" && d.TargetColumn != "" && !b.hasColumn(d.TargetColumn) {
		b.log.WithFields(fields).Warn("drop on unknown column ignored")
		return DropResult{Reason: reasonUnknownColumn}, nil
	}
	if d.TargetID != "" {
		if _, err := domain.ParsePosition(string(d.Position)); err != nil {
			b.log.WithFields(fields).WithError(err).Warn("invalid drop position, falling back to after")
		}
	}

	cmd, ok, err := Resolve(b.store, d)
	if err != nil {
		if domain.IsNotFound(err) {
			b.log.WithFields(fields).WithError(err).Debug("stale drop ignored")
			return DropResult{Reason: reasonStale}, nil
		}
		return DropResult{}, err
	}
	if !ok {
		return DropResult{Reason: reasonNoop}, nil
	}
	applied, changed, err := b.applyLocked(cmd)
	if err != nil {
		if domain.IsNotFound(err) {
			return DropResult{Reason: reasonStale}, nil
		}
		return DropResult{}, err
	}
	if !changed {
		return DropResult{Reason: reasonNoop}, nil
	}
	return DropResult{Applied: true, Command: &applied}, nil
}

// Execute applies an externally issued intent such as add, edit or delete. Status values
// must name a board column. Intents that change nothing, such as deleting an absent task,
// succeed without bumping the version or reaching the sink.
func (b *Board) Execute(ctx context.Context, cmd domain.Command) (domain.Command, error) {
	b.mu.Lock()
	applied, changed, err := b.executeLocked(cmd)
	b.mu.Unlock()
	if err == nil && changed {
		b.publish(ctx, applied)
	}
	return applied, err
}

func (b *Board) executeLocked(cmd domain.Command) (domain.Command, bool, error) {
	switch cmd.Type {
	case domain.CreateTask:
		if cmd.Task == nil {
			return cmd, false, fmt.Errorf("%w: create-task without task", domain.ErrInvalidTask)
		}
		t := *cmd.Task
		cmd.Task = &t
		if cmd.Task.Status == "" {
			cmd.Task.Status = b.columns[0]
		}
		if !b.hasColumn(cmd.Task.Status) {
			return cmd, false, fmt.Errorf("%w: %s", domain.ErrUnknownColumn, cmd.Task.Status)
		}
	case domain.UpdateTask:
		if cmd.Fields != nil && cmd.Fields.Status != nil && !b.hasColumn(*cmd.Fields.Status) {
			return cmd, false, fmt.Errorf("%w: %s", domain.ErrUnknownColumn, *cmd.Fields.Status)
		}
	case domain.ReorderTask:
		pos, err := domain.ParsePosition(string(cmd.Position))
		if err != nil {
			b.log.WithFields(log.Fields{"board": b.id, "task": cmd.TaskID}).WithError(err).Warn("invalid reorder position, falling back to after")
		}
		cmd.Position = pos
	}
	return b.applyLocked(cmd)
}

// applyLocked mutates the store and stamps the command. changed is false for intents the
// store accepted without effect.
func (b *Board) applyLocked(cmd domain.Command) (domain.Command, bool, error) {
	if cmd.Type == domain.CreateTask && cmd.Task != nil {
		t, err := b.store.AddTask(*cmd.Task, cmd.Rank)
		if err != nil {
			return cmd, false, err
		}
		cmd.Task = &t
		cmd.TaskID = t.ID
	} else {
		changed, err := b.store.Apply(cmd)
		if err != nil || !changed {
			return cmd, false, err
		}
	}
	if cmd.Timestamp == 0 {
		cmd.Timestamp = domain.NextTimestamp()
	}
	b.version++
	return cmd, true, nil
}

func (b *Board) publish(ctx context.Context, cmd domain.Command) {
	if b.sink == nil {
		return
	}
	if err := b.sink.Publish(ctx, b.id, []domain.Command{cmd}); err != nil {
		b.log.WithFields(log.Fields{"board": b.id, "type": cmd.Type, "task": cmd.TaskID}).WithError(err).Error("failed to publish intent")
	}
}

// TitleAction is an explicit column title edit step.
type TitleAction string

const (
	TitleBegin  TitleAction = "begin"
	TitleDraft  TitleAction = "draft"
	TitleCommit TitleAction = "commit"
	TitleCancel TitleAction = "cancel"
)

var errUnknownTitleAction = errors.New("unknown title action")

// EditTitle applies one title edit step to a column.
func (b *Board) EditTitle(status domain.Status, action TitleAction, value string) (TitleView, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.titles[status]
	if !ok {
		return TitleView{}, fmt.Errorf("%w: %s", domain.ErrUnknownColumn, status)
	}
	switch action {
	case TitleBegin:
		t.Begin()
	case TitleDraft:
		t.SetDraft(value)
	case TitleCommit:
		if t.Commit() {
			b.version++
		}
	case TitleCancel:
		t.Cancel()
	default:
		return t.View(), fmt.Errorf("%w %q", errUnknownTitleAction, action)
	}
	return t.View(), nil
}

// IsUnknownTitleAction reports whether err came from an unsupported title action.
func IsUnknownTitleAction(err error) bool { return errors.Is(err, errUnknownTitleAction) }

func (b *Board) hasColumn(s domain.Status) bool {
	return slices.Contains(b.columns, s)
}
