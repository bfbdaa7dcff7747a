package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"prism-board/domain"
)

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

type messageQueue interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// Storage reads board tasks from the read model table and publishes applied intents to
// the command queue.
type Storage struct {
	taskTable    *aztables.Client
	commandQueue messageQueue
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, commandQueue string) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &tablesClientOptions)
	if err != nil {
		return nil, fmt.Errorf("tables client: %w", err)
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	cq, err := azqueue.NewQueueClientFromConnectionString(connStr, commandQueue, &queueClientOptions)
	if err != nil {
		return nil, fmt.Errorf("queue client: %w", err)
	}
	return &Storage{taskTable: svc.NewClient(tasksTable), commandQueue: cq}, nil
}

// taskEntity is the read model row of a task. PartitionKey is the board id and RowKey the
// task id.
type taskEntity struct {
	aztables.Entity
	Title       string    `json:"Title"`
	Description string    `json:"Description"`
	Status      string    `json:"Status"`
	Rank        float64   `json:"Rank"`
	CreatedAt   time.Time `json:"CreatedAt"`
	Timestamp   time.Time `json:"Timestamp"`
}

func decodeTaskEntity(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := sonic.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	created := ent.CreatedAt
	if created.IsZero() {
		created = ent.Timestamp
	}
	return domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Status:      domain.Status(ent.Status),
		Rank:        ent.Rank,
		CreatedAt:   created.UTC(),
	}, nil
}

func partitionFilter(boardID string) string {
	return "PartitionKey eq '" + strings.ReplaceAll(boardID, "'", "''") + "'"
}

// LoadTasks retrieves all tasks of a board.
func (s *Storage) LoadTasks(ctx context.Context, boardID string) ([]domain.Task, error) {
	filter := partitionFilter(boardID)
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			t, err := decodeTaskEntity(e)
			if err != nil {
				return nil, fmt.Errorf("decode task entity: %w", err)
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// PublishIntents sends each intent to the command queue in order.
func (s *Storage) PublishIntents(ctx context.Context, boardID string, cmds []domain.Command) error {
	for _, cmd := range cmds {
		data, err := sonic.Marshal(domain.CommandEnvelope{BoardID: boardID, Command: cmd})
		if err != nil {
			return err
		}
		if _, err := s.commandQueue.EnqueueMessage(ctx, string(data), nil); err != nil {
			return fmt.Errorf("enqueue %s for task %s: %w", cmd.Type, cmd.TaskID, err)
		}
	}
	return nil
}
