package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateTask is returned when a task id is already present on the board.
	ErrDuplicateTask = errors.New("task already exists")
	// ErrUnknownColumn is returned when a status is not one of the board's columns.
	ErrUnknownColumn = errors.New("unknown column")
	// ErrEmptyUpdate is returned for updates that carry no fields.
	ErrEmptyUpdate = errors.New("task update had no fields")
	// ErrUnknownCommand is returned for intents with an unsupported type.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidTask is returned when a command is missing the data its type requires.
	ErrInvalidTask = errors.New("invalid task")
)

// NotFoundError reports a task id that does not exist at the time it is referenced.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.ID)
}

// IsNotFound reports whether err is or wraps a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// InvalidPositionError reports a position hint that is neither before nor after.
type InvalidPositionError struct {
	Value string
}

func (e *InvalidPositionError) Error() string {
	return fmt.Sprintf("invalid position %q", e.Value)
}
