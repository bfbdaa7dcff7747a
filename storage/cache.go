package storage

import (
	"context"
	"errors"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

const (
	tasksCachePrefix   = "board"
	tasksCacheVersion  = 1
	tasksCacheDeadline = 500 * time.Millisecond
)

type backend interface {
	LoadTasks(ctx context.Context, boardID string) ([]domain.Task, error)
	PublishIntents(ctx context.Context, boardID string, cmds []domain.Command) error
}

// tasksSnapshot is the redis payload for one board's read model.
type tasksSnapshot struct {
	Version  int           `json:"version"`
	CachedAt time.Time     `json:"cachedAt"`
	Tasks    []domain.Task `json:"tasks"`
}

// Cache keeps a snapshot of each board's tasks in redis in front of the table read model.
// Publishing intents for a board drops its snapshot.
type Cache struct {
	base  backend
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewCache wraps base. A nil client or non-positive ttl turns the cache into a passthrough.
func NewCache(base backend, client *redis.Client, ttl time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base storage is nil")
	}
	return &Cache{base: base, redis: client, ttl: max(ttl, 0), now: time.Now}
}

func (c *Cache) enabled() bool { return c.redis != nil && c.ttl > 0 }

func (c *Cache) LoadTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	if snap, ok := c.read(ctx, boardID); ok {
		return snap.Tasks, nil
	}
	tasks, err := c.base.LoadTasks(ctx, boardID)
	if err != nil {
		return nil, err
	}
	c.write(ctx, boardID, tasks)
	return tasks, nil
}

func (c *Cache) PublishIntents(ctx context.Context, boardID string, cmds []domain.Command) error {
	if err := c.base.PublishIntents(ctx, boardID, cmds); err != nil {
		return err
	}
	if c.redis != nil {
		c.drop(ctx, boardID)
	}
	return nil
}

func (c *Cache) read(ctx context.Context, boardID string) (tasksSnapshot, bool) {
	var snap tasksSnapshot
	if !c.enabled() {
		return snap, false
	}
	ctx, cancel := context.WithTimeout(ctx, tasksCacheDeadline)
	defer cancel()

	data, err := c.redis.Get(ctx, tasksCacheKey(boardID)).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return snap, false
	case err != nil:
		log.WithError(err).WithField("board", boardID).Warn("tasks cache read failed")
		return snap, false
	}
	if err := sonic.Unmarshal(data, &snap); err != nil || snap.Version != tasksCacheVersion {
		log.WithField("board", boardID).Debug("discarding unreadable tasks snapshot")
		c.drop(ctx, boardID)
		return tasksSnapshot{}, false
	}
	return snap, true
}

func (c *Cache) write(ctx context.Context, boardID string, tasks []domain.Task) {
	if !c.enabled() {
		return
	}
	data, err := sonic.Marshal(tasksSnapshot{Version: tasksCacheVersion, CachedAt: c.now().UTC(), Tasks: tasks})
	if err != nil {
		log.WithError(err).WithField("board", boardID).Warn("encode tasks snapshot")
		return
	}
	if err := c.redis.Set(ctx, tasksCacheKey(boardID), data, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("board", boardID).Debug("tasks cache write failed")
	}
}

func (c *Cache) drop(ctx context.Context, boardID string) {
	if err := c.redis.Del(ctx, tasksCacheKey(boardID)).Err(); err != nil {
		log.WithError(err).WithField("board", boardID).Debug("tasks cache evict failed")
	}
}

func tasksCacheKey(boardID string) string {
	return tasksCachePrefix + ":" + boardID + ":tasks"
}
