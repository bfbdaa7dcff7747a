package api

import (
	"context"

	"prism-board/board"
	"prism-board/domain"
)

// Boards resolves a board by id, loading it on first use.
type Boards interface {
	Get(ctx context.Context, boardID string) (*board.Board, error)
}

// Deduper prevents processing of duplicate commands.
type Deduper interface {
	// AddMany records the keys and reports which ones were newly added.
	AddMany(ctx context.Context, boardID string, keys []string) ([]bool, error)
	// Remove deletes a previously added key, used when the command was rejected.
	Remove(ctx context.Context, boardID, key string) error
}

// Publisher delivers applied intents downstream.
type Publisher interface {
	PublishIntents(ctx context.Context, boardID string, cmds []domain.Command) error
}
