package repo

import (
	"context"
	"net/url"
	"testing"

	"tasktrack/internal/domain"
	"tasktrack/internal/query"
)

func TestMemTaskRepo_ListAppliesPlan(t *testing.T) {
	r := NewMemTaskRepo()
	ctx := context.Background()
	for _, name := range []string{"c", "a", "b"} {
		if _, err := r.Create(ctx, domain.Task{Name: name}); err != nil {
			t.Fatalf("create: %v", err)
		}
	}
	if _, err := r.Create(ctx, domain.Task{Name: "d", Completed: true}); err != nil {
		t.Fatalf("create: %v", err)
	}

	plan := query.Build(url.Values{
		"where": {`{"completed":false}`},
		"sort":  {`{"name":1}`},
		"skip":  {"1"},
		"limit": {"1"},
	})
	list, err := r.List(ctx, &plan)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Name != "b" {
		t.Errorf("list = %v, want just task b", list)
	}

	n, err := r.Count(ctx, &plan)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 3 {
		t.Errorf("count = %d, want 3 (bounds do not apply to counts)", n)
	}
}

func TestMemUserRepo_AtomicPendingOps(t *testing.T) {
	r := NewMemUserRepo()
	ctx := context.Background()
	u, err := r.Create(ctx, domain.User{Name: "Alice", Email: "a@x.com"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := r.AddPendingTask(ctx, u.ID, "t1"); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	got, _ := r.GetByID(ctx, u.ID)
	if len(got.PendingTasks) != 1 {
		t.Errorf("pendingTasks = %v, double add must not duplicate", got.PendingTasks)
	}

	for i := 0; i < 2; i++ {
		if err := r.RemovePendingTask(ctx, u.ID, "t1"); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}
	got, _ = r.GetByID(ctx, u.ID)
	if len(got.PendingTasks) != 0 {
		t.Errorf("pendingTasks = %v, want empty; remove is idempotent", got.PendingTasks)
	}
}
