package board

import (
	"reflect"
	"testing"
	"time"

	"prism-board/domain"
)

func TestProjectOrdersByRankThenCreatedThenID(t *testing.T) {
	later := baseTime.Add(time.Minute)
	tasks := []domain.Task{
		{ID: "z", Status: domain.StatusTodo, Rank: 1024, CreatedAt: baseTime},
		{ID: "late", Status: domain.StatusTodo, Rank: 1024, CreatedAt: later},
		{ID: "first", Status: domain.StatusTodo, Rank: 10, CreatedAt: later},
		{ID: "a", Status: domain.StatusTodo, Rank: 1024, CreatedAt: baseTime},
		{ID: "other", Status: domain.StatusDone, Rank: 1, CreatedAt: baseTime},
	}
	got := ids(Project(tasks, domain.StatusTodo))
	want := []string{"first", "a", "z", "late"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestProjectIsDeterministicAcrossInputOrder(t *testing.T) {
	tasks := []domain.Task{
		task("c", domain.StatusDoing, 2048),
		task("a", domain.StatusDoing, 1024),
		task("b", domain.StatusDoing, 1024),
	}
	first := ids(Project(tasks, domain.StatusDoing))
	reversed := []domain.Task{tasks[2], tasks[1], tasks[0]}
	second := ids(Project(reversed, domain.StatusDoing))
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("projection depends on input order: %v vs %v", first, second)
	}
	if tasks[0].ID != "c" {
		t.Fatalf("Project modified its input")
	}
}

func TestProjectAllKeepsColumnOrderAndCounts(t *testing.T) {
	tasks := []domain.Task{
		task("a", domain.StatusTodo, 1024),
		task("b", domain.StatusDone, 1024),
		task("c", domain.StatusDone, 2048),
		task("orphan", domain.Status("archived"), 1024),
	}
	cols := ProjectAll(tasks, domain.DefaultColumns)
	if len(cols) != 3 {
		t.Fatalf("expected 3 columns, got %d", len(cols))
	}
	counts := map[domain.Status]int{}
	total := 0
	for i, c := range cols {
		if c.Status != domain.DefaultColumns[i] {
			t.Fatalf("column %d = %s, want %s", i, c.Status, domain.DefaultColumns[i])
		}
		if c.Count != len(c.Tasks) {
			t.Fatalf("count mismatch for %s", c.Status)
		}
		counts[c.Status] = c.Count
		total += c.Count
	}
	if counts[domain.StatusTodo] != 1 || counts[domain.StatusDoing] != 0 || counts[domain.StatusDone] != 2 {
		t.Fatalf("unexpected counts: %v", counts)
	}
	if total != 3 {
		t.Fatalf("expected orphan to be omitted, total %d", total)
	}
}
