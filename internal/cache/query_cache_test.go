package cache

import (
	"context"
	"testing"
	"time"

	"tasktrack/internal/domain"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) *QueryCache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, time.Minute)
}

func TestQueryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	tasks := []domain.Task{{ID: "t1", Name: "write report"}}
	if err := c.SetTasks(ctx, "k1", tasks); err != nil {
		t.Fatalf("SetTasks: %v", err)
	}
	got, err := c.GetTasks(ctx, "k1")
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if len(got) != 1 || got[0].ID != "t1" {
		t.Fatalf("got %+v", got)
	}
}

func TestQueryCacheMiss(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	got, err := c.GetTasks(ctx, "absent")
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on miss, got %+v", got)
	}
}

// An empty result must read back as a non-nil slice: callers use nil as
// the miss signal, so a nil-stored empty list would refetch every time.
func TestQueryCacheEmptyListIsAHit(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	if err := c.SetTasks(ctx, "empty", nil); err != nil {
		t.Fatalf("SetTasks: %v", err)
	}
	got, err := c.GetTasks(ctx, "empty")
	if err != nil {
		t.Fatalf("GetTasks: %v", err)
	}
	if got == nil {
		t.Fatal("empty cached list read back as a miss")
	}
	if len(got) != 0 {
		t.Fatalf("got %+v", got)
	}

	if err := c.SetUsers(ctx, "empty", nil); err != nil {
		t.Fatalf("SetUsers: %v", err)
	}
	users, err := c.GetUsers(ctx, "empty")
	if err != nil {
		t.Fatalf("GetUsers: %v", err)
	}
	if users == nil {
		t.Fatal("empty cached user list read back as a miss")
	}
}

func TestQueryCacheInvalidateAll(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t)

	if err := c.SetTasks(ctx, "k1", []domain.Task{{ID: "t1"}}); err != nil {
		t.Fatalf("SetTasks: %v", err)
	}
	if err := c.SetUsers(ctx, "k2", []domain.User{{ID: "u1"}}); err != nil {
		t.Fatalf("SetUsers: %v", err)
	}
	if err := c.InvalidateAll(ctx); err != nil {
		t.Fatalf("InvalidateAll: %v", err)
	}
	if got, _ := c.GetTasks(ctx, "k1"); got != nil {
		t.Fatalf("tasks survived invalidation: %+v", got)
	}
	if got, _ := c.GetUsers(ctx, "k2"); got != nil {
		t.Fatalf("users survived invalidation: %+v", got)
	}
}
