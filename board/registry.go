package board

import (
	"context"
	"fmt"
	"slices"
	"sync"

	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// Loader hydrates a board's tasks from the read model.
type Loader interface {
	LoadTasks(ctx context.Context, boardID string) ([]domain.Task, error)
}

// Registry lazily creates one Board per board id.
type Registry struct {
	mu      sync.Mutex
	boards  map[string]*boardEntry
	columns []domain.Status
	loader  Loader
	sink    IntentSink
	log     *log.Logger
}

// boardEntry is a board being loaded or already loaded. done is closed once board or err
// is set.
type boardEntry struct {
	done  chan struct{}
	board *Board
	err   error
}

// NewRegistry creates a registry. loader and sink may be nil, in which case boards start
// empty and applied intents are not forwarded.
func NewRegistry(columns []domain.Status, loader Loader, sink IntentSink, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Registry{
		boards:  make(map[string]*boardEntry),
		columns: slices.Clone(columns),
		loader:  loader,
		sink:    sink,
		log:     logger,
	}
}

// Get returns the board for boardID, loading it on first use. Concurrent first requests
// share one load, and the registry lock is not held while loading. A failed load is
// reported to everyone waiting on it and retried by the next Get.
func (r *Registry) Get(ctx context.Context, boardID string) (*Board, error) {
	if boardID == "" {
		return nil, fmt.Errorf("board id is required")
	}
	r.mu.Lock()
	e, ok := r.boards[boardID]
	if !ok {
		e = &boardEntry{done: make(chan struct{})}
		r.boards[boardID] = e
	}
	r.mu.Unlock()

	if !ok {
		r.load(ctx, boardID, e)
	}
	select {
	case <-e.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.board, nil
}

func (r *Registry) load(ctx context.Context, boardID string, e *boardEntry) {
	defer close(e.done)
	var tasks []domain.Task
	if r.loader != nil {
		var err error
		tasks, err = r.loader.LoadTasks(ctx, boardID)
		if err != nil {
			e.err = fmt.Errorf("load board %s: %w", boardID, err)
			r.mu.Lock()
			if r.boards[boardID] == e {
				delete(r.boards, boardID)
			}
			r.mu.Unlock()
			return
		}
	}
	e.board = New(boardID, r.columns, tasks, r.sink, r.log)
	r.log.WithFields(log.Fields{"board": boardID, "tasks": len(tasks)}).Info("board loaded")
}
