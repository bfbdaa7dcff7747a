package api

import (
	"prism-board/board"
	"prism-board/domain"
)

const (
	postBodyMaxSize       = 64 * 1024 // 64 KiB
	maxCommandsPerRequest = 100
)

type errorResponse struct {
	Error string `json:"error"`
}

type columnsResponse struct {
	Board   string         `json:"board"`
	Version uint64         `json:"version"`
	Columns []board.Column `json:"columns"`
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

// Outcome of one posted command.
const (
	commandApplied   = "applied"
	commandDuplicate = "duplicate"
	commandRejected  = "rejected"
)

type commandResult struct {
	IdempotencyKey string          `json:"idempotencyKey"`
	Status         string          `json:"status"`
	Command        *domain.Command `json:"command,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// /POST /api/boards/:board/commands response body
type postCommandResponse struct {
	Results []commandResult `json:"results"`
}

type dragStartRequest struct {
	TaskID string `json:"taskId"`
}

type hoverColumnRequest struct {
	Column domain.Status `json:"column"`
}

type hoverTaskRequest struct {
	TargetID string       `json:"targetId"`
	PointerY float64      `json:"pointerY"`
	Bounds   board.Bounds `json:"bounds"`
}

const (
	leaveTask   = "task"
	leaveColumn = "column"
)

// leaveRequest reports the pointer leaving a task or column element. Left is the element
// that fired the event and Entered the element the pointer moved into.
type leaveRequest struct {
	Kind     string            `json:"kind"`
	TargetID string            `json:"targetId,omitempty"`
	Column   domain.Status     `json:"column,omitempty"`
	Left     board.ElementPath `json:"left"`
	Entered  board.ElementPath `json:"entered"`
}

type titleRequest struct {
	Action board.TitleAction `json:"action"`
	Value  string            `json:"value,omitempty"`
}
