package domain

// Intent types carried by Command.Type.
const (
	CreateTask  = "create-task"
	UpdateTask  = "update-task"
	ReorderTask = "reorder-task"
	DeleteTask  = "delete-task"
)

// Command represents a mutation intent for a board.
type Command struct {
	// ID carries the idempotency key once the command is accepted.
	ID             string      `json:"id,omitempty"`
	IdempotencyKey string      `json:"idempotencyKey,omitempty"`
	Type           string      `json:"type"`
	TaskID         string      `json:"taskId,omitempty"`
	AnchorID       string      `json:"anchorId,omitempty"`
	Position       Position    `json:"position,omitempty"`
	Fields         *TaskFields `json:"fields,omitempty"`
	Task           *Task       `json:"task,omitempty"`
	// Rank places a created task explicitly. Nil appends it to its column.
	Rank           *float64    `json:"rank,omitempty"`
	Timestamp      int64       `json:"timestamp"`
}

// CommandEnvelope wraps a command with the board it was applied to.
type CommandEnvelope struct {
	BoardID string  `json:"boardId"`
	Command Command `json:"command"`
}

// NewStatusUpdate moves a task to another column without an anchor.
func NewStatusUpdate(taskID string, status Status) Command {
	return Command{Type: UpdateTask, TaskID: taskID, Fields: &TaskFields{Status: &status}}
}

// NewReorder places a task before or after an anchor task, adopting the anchor's status.
func NewReorder(taskID, anchorID string, pos Position) Command {
	return Command{Type: ReorderTask, TaskID: taskID, AnchorID: anchorID, Position: pos}
}

func NewDelete(taskID string) Command {
	return Command{Type: DeleteTask, TaskID: taskID}
}

func NewCreate(t Task) Command {
	return Command{Type: CreateTask, TaskID: t.ID, Task: &t}
}
