package board

import (
	"strings"

	"prism-board/domain"
)

// DragState is the tag of the drag session state machine.
type DragState int

const (
	Idle DragState = iota
	Dragging
	HoveringColumn
	HoveringTask
)

func (s DragState) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case HoveringColumn:
		return "hovering-column"
	case HoveringTask:
		return "hovering-task"
	default:
		return "unknown"
	}
}

// ElementPath identifies a rendered element by its ancestry, outermost first, separated by
// slashes, e.g. "board/doing/task-42/title".
type ElementPath string

// Contains reports whether other is p itself or nested anywhere below it.
func (p ElementPath) Contains(other ElementPath) bool {
	if p == "" || other == "" {
		return false
	}
	return other == p || strings.HasPrefix(string(other), string(p)+"/")
}

// Bounds is the vertical extent of a hovered task.
type Bounds struct {
	Top    float64 `json:"top"`
	Height float64 `json:"height"`
}

// PositionFor maps a pointer Y coordinate to a drop position: strictly above the vertical
// midpoint is before, anything else is after.
func (b Bounds) PositionFor(pointerY float64) domain.Position {
	if pointerY < b.Top+b.Height/2 {
		return domain.Before
	}
	return domain.After
}

// Drop describes a completed drop gesture. Exactly one of TargetID or TargetColumn drives
// resolution; TargetID wins when both are set.
type Drop struct {
	DraggedID    string          `json:"draggedId"`
	TargetID     string          `json:"targetId,omitempty"`
	TargetColumn domain.Status   `json:"targetColumn,omitempty"`
	Position     domain.Position `json:"position,omitempty"`
}

// DragView is the session state exposed for rendering drop indicators.
type DragView struct {
	State         string          `json:"state"`
	DraggedTaskID string          `json:"draggedTaskId,omitempty"`
	HoverTargetID string          `json:"hoverTargetId,omitempty"`
	HoverColumn   domain.Status   `json:"hoverColumn,omitempty"`
	Position      domain.Position `json:"position,omitempty"`
}

// DragSession tracks one in-progress drag gesture. Fields beyond state are only meaningful
// for the states that use them, and every transition rewrites all of them, so a hovered
// task can never coexist with a different hovered column.
type DragSession struct {
	state    DragState
	taskID   string
	column   domain.Status
	targetID string
	position domain.Position
}

// State returns the current tag.
func (s *DragSession) State() DragState { return s.state }

// Start begins a gesture on taskID, discarding any previous one.
func (s *DragSession) Start(taskID string) {
	*s = DragSession{state: Dragging, taskID: taskID}
}

// HoverColumn records the pointer over a column's empty area. It reports false when no
// gesture is in progress.
func (s *DragSession) HoverColumn(status domain.Status) bool {
	if s.state == Idle {
		return false
	}
	*s = DragSession{state: HoveringColumn, taskID: s.taskID, column: status}
	return true
}

// HoverTask records the pointer over a task in column status, deriving the position from
// pointerY against the task's bounds.
func (s *DragSession) HoverTask(targetID string, status domain.Status, pointerY float64, b Bounds) bool {
	if s.state == Idle {
		return false
	}
	*s = DragSession{
		state:    HoveringTask,
		taskID:   s.taskID,
		column:   status,
		targetID: targetID,
		position: b.PositionFor(pointerY),
	}
	return true
}

// LeaveTask handles the pointer leaving the element of task targetID for entered. Leave
// events for nested children, where entered is still inside left, are ignored. Leaving
// the hovered task falls back to hovering its column.
func (s *DragSession) LeaveTask(targetID string, left, entered ElementPath) bool {
	if s.state != HoveringTask || s.targetID != targetID || left.Contains(entered) {
		return false
	}
	*s = DragSession{state: HoveringColumn, taskID: s.taskID, column: s.column}
	return true
}

// LeaveColumn handles the pointer leaving the element of column status for entered.
// Nested leaves are ignored; a real leave clears all hover state but keeps the gesture in
// Dragging. A following Drop or End always returns the session to Idle.
func (s *DragSession) LeaveColumn(status domain.Status, left, entered ElementPath) bool {
	if s.state != HoveringColumn && s.state != HoveringTask {
		return false
	}
	if s.column != status || left.Contains(entered) {
		return false
	}
	*s = DragSession{state: Dragging, taskID: s.taskID}
	return true
}

// Drop ends the gesture and returns what it was dropped on. ok is false when the pointer
// was not over a drop target. The session is Idle afterwards in every case.
func (s *DragSession) Drop() (Drop, bool) {
	prev := *s
	s.End()
	switch prev.state {
	case HoveringTask:
		return Drop{DraggedID: prev.taskID, TargetID: prev.targetID, TargetColumn: prev.column, Position: prev.position}, true
	case HoveringColumn:
		return Drop{DraggedID: prev.taskID, TargetColumn: prev.column}, true
	default:
		return Drop{}, false
	}
}

// End discards the gesture.
func (s *DragSession) End() {
	*s = DragSession{}
}

// View returns the rendering snapshot.
func (s *DragSession) View() DragView {
	return DragView{
		State:         s.state.String(),
		DraggedTaskID: s.taskID,
		HoverTargetID: s.targetID,
		HoverColumn:   s.column,
		Position:      s.position,
	}
}
