package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus/hooks/test"

	"prism-board/domain"
)

type fakeQueue struct {
	mu       sync.Mutex
	messages []string
	failAt   int
}

func newFakeQueue() *fakeQueue { return &fakeQueue{failAt: -1} }

func (f *fakeQueue) EnqueueMessage(_ context.Context, content string, _ *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt >= 0 && len(f.messages) == f.failAt {
		return azqueue.EnqueueMessagesResponse{}, errors.New("enqueue failure")
	}
	f.messages = append(f.messages, content)
	return azqueue.EnqueueMessagesResponse{}, nil
}

func TestDecodeTaskEntity(t *testing.T) {
	raw := []byte(`{
		"PartitionKey": "board-1",
		"RowKey": "task-1",
		"Timestamp": "2024-05-01T10:00:00Z",
		"Title": "Write docs",
		"Description": "for the API",
		"Status": "doing",
		"Rank": 1536.5,
		"Rank@odata.type": "Edm.Double",
		"CreatedAt": "2024-05-01T09:00:00Z"
	}`)
	got, err := decodeTaskEntity(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := domain.Task{
		ID:          "task-1",
		Title:       "Write docs",
		Description: "for the API",
		Status:      domain.StatusDoing,
		Rank:        1536.5,
		CreatedAt:   time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	if !got.CreatedAt.Equal(want.CreatedAt) {
		t.Fatalf("createdAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	}
	got.CreatedAt = want.CreatedAt
	if got != want {
		t.Fatalf("decoded %#v, want %#v", got, want)
	}
}

func TestDecodeTaskEntityFallsBackToTimestamp(t *testing.T) {
	raw := []byte(`{"RowKey":"t","Timestamp":"2024-05-01T10:00:00Z","Status":"todo"}`)
	got, err := decodeTaskEntity(raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !got.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected createdAt: %v", got.CreatedAt)
	}
}

func TestPartitionFilterEscapesQuotes(t *testing.T) {
	if got, want := partitionFilter("o'brien"), "PartitionKey eq 'o''brien'"; got != want {
		t.Fatalf("filter = %q, want %q", got, want)
	}
}

func TestPublishIntentsEnqueuesEnvelopesInOrder(t *testing.T) {
	q := newFakeQueue()
	s := &Storage{commandQueue: q}
	cmds := []domain.Command{
		domain.NewReorder("a", "b", domain.Before),
		domain.NewStatusUpdate("a", domain.StatusDone),
	}
	if err := s.PublishIntents(context.Background(), "board-1", cmds); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(q.messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(q.messages))
	}
	var env domain.CommandEnvelope
	if err := sonic.UnmarshalString(q.messages[0], &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.BoardID != "board-1" || env.Command.Type != domain.ReorderTask || env.Command.AnchorID != "b" {
		t.Fatalf("unexpected envelope: %#v", env)
	}
}

func TestPublishIntentsStopsAtFirstFailure(t *testing.T) {
	q := newFakeQueue()
	q.failAt = 1
	s := &Storage{commandQueue: q}
	cmds := []domain.Command{domain.NewDelete("a"), domain.NewDelete("b"), domain.NewDelete("c")}
	err := s.PublishIntents(context.Background(), "board-1", cmds)
	if err == nil || !strings.Contains(err.Error(), "task b") {
		t.Fatalf("expected failure on second intent, got %v", err)
	}
	if len(q.messages) != 1 {
		t.Fatalf("expected 1 message before failure, got %d", len(q.messages))
	}
}

func TestLogPublisherLogsEachIntent(t *testing.T) {
	logger, hook := test.NewNullLogger()
	p := LogPublisher{Log: logger}
	cmds := []domain.Command{domain.NewDelete("a"), domain.NewReorder("b", "c", domain.After)}
	if err := p.PublishIntents(context.Background(), "board-1", cmds); err != nil {
		t.Fatalf("publish: %v", err)
	}
	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[1].Data["anchor"] != "c" || entries[1].Data["board"] != "board-1" {
		t.Fatalf("unexpected fields: %#v", entries[1].Data)
	}
}
