package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"tasktrack/internal/domain"
	"tasktrack/internal/repo"
)

func newUserFixture(t *testing.T) (*UserService, *TaskService, *repo.MemTaskRepo, *repo.MemUserRepo) {
	t.Helper()
	tasks := repo.NewMemTaskRepo()
	users := repo.NewMemUserRepo()
	return NewUserService(users, tasks, nil), NewTaskService(tasks, users, nil), tasks, users
}

func TestUserService_CreateRequiresNameAndEmail(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)
	if _, err := svc.Create(context.Background(), "Alice", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("missing email: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Create(context.Background(), "", "a@x.com"); !errors.Is(err, ErrValidation) {
		t.Errorf("missing name: err = %v, want ErrValidation", err)
	}
}

func TestUserService_CreateDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newUserFixture(t)
	ctx := context.Background()
	if _, err := svc.Create(ctx, "Alice", "a@x.com"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(ctx, "Other Alice", "a@x.com"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestUserService_UpdateReconcilesTaskList(t *testing.T) {
	userSvc, taskSvc, tasks, users := newUserFixture(t)
	ctx := context.Background()

	alice, err := userSvc.Create(ctx, "Alice", "a@x.com")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	t1, err := taskSvc.Create(ctx, TaskFields{Name: "T1", AssignedUser: alice.ID})
	if err != nil {
		t.Fatalf("create t1: %v", err)
	}
	t2, err := taskSvc.Create(ctx, TaskFields{Name: "T2"})
	if err != nil {
		t.Fatalf("create t2: %v", err)
	}

	// Desired list drops t1 and adds t2.
	saved, err := userSvc.Update(ctx, alice.ID, "Alice", "a@x.com", []string{t2.ID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !reflect.DeepEqual(saved.PendingTasks, []string{t2.ID}) {
		t.Errorf("pendingTasks = %v, want [%s]", saved.PendingTasks, t2.ID)
	}
	got1, _ := tasks.GetByID(ctx, t1.ID)
	if got1.AssignedUser != "" || got1.AssignedUserName != domain.UnassignedName {
		t.Errorf("t1 = %q/%q, want unassigned", got1.AssignedUser, got1.AssignedUserName)
	}
	got2, _ := tasks.GetByID(ctx, t2.ID)
	if got2.AssignedUser != alice.ID || got2.AssignedUserName != "Alice" {
		t.Errorf("t2 = %q/%q, want assigned to Alice", got2.AssignedUser, got2.AssignedUserName)
	}
	assertConsistent(t, tasks, users)
}

func TestUserService_UpdateIsIdempotent(t *testing.T) {
	userSvc, taskSvc, tasks, users := newUserFixture(t)
	ctx := context.Background()

	alice, err := userSvc.Create(ctx, "Alice", "a@x.com")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	t1, err := taskSvc.Create(ctx, TaskFields{Name: "T1"})
	if err != nil {
		t.Fatalf("create t1: %v", err)
	}

	first, err := userSvc.Update(ctx, alice.ID, "Alice", "a@x.com", []string{t1.ID})
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, err := userSvc.Update(ctx, alice.ID, "Alice", "a@x.com", []string{t1.ID})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}
	if !reflect.DeepEqual(first.PendingTasks, second.PendingTasks) {
		t.Errorf("second reconcile changed state: %v vs %v", first.PendingTasks, second.PendingTasks)
	}
	got, _ := tasks.GetByID(ctx, t1.ID)
	if got.AssignedUser != alice.ID {
		t.Errorf("t1 assignedUser = %q, want %s", got.AssignedUser, alice.ID)
	}
	assertConsistent(t, tasks, users)
}

func TestUserService_UpdateStealsTaskFromOtherUser(t *testing.T) {
	userSvc, taskSvc, tasks, users := newUserFixture(t)
	ctx := context.Background()

	alice, err := userSvc.Create(ctx, "Alice", "a@x.com")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := userSvc.Create(ctx, "Bob", "b@x.com")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	t2, err := taskSvc.Create(ctx, TaskFields{Name: "T2", AssignedUser: bob.ID})
	if err != nil {
		t.Fatalf("create t2: %v", err)
	}

	if _, err := userSvc.Update(ctx, alice.ID, "Alice", "a@x.com", []string{t2.ID}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := tasks.GetByID(ctx, t2.ID)
	if got.AssignedUser != alice.ID || got.AssignedUserName != "Alice" {
		t.Errorf("t2 = %q/%q, want taken over by Alice", got.AssignedUser, got.AssignedUserName)
	}
	b, _ := users.GetByID(ctx, bob.ID)
	if b.HasPending(t2.ID) {
		t.Errorf("previous owner still lists %s", t2.ID)
	}
	assertConsistent(t, tasks, users)
}

func TestUserService_UpdateOnlyUnassignsOwnTasks(t *testing.T) {
	userSvc, taskSvc, tasks, users := newUserFixture(t)
	ctx := context.Background()

	bob, err := userSvc.Create(ctx, "Bob", "b@x.com")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	t1, err := taskSvc.Create(ctx, TaskFields{Name: "T1", AssignedUser: bob.ID})
	if err != nil {
		t.Fatalf("create t1: %v", err)
	}
	// Seed a stale membership directly: Alice's list names a task that
	// actually belongs to Bob.
	alice, err := users.Create(ctx, domain.User{Name: "Alice", Email: "a@x.com", PendingTasks: []string{t1.ID}})
	if err != nil {
		t.Fatalf("seed alice: %v", err)
	}

	// Alice dropping the id must not clobber Bob's assignment: the bulk
	// unassign only touches tasks still assigned to her.
	if _, err := userSvc.Update(ctx, alice.ID, "Alice", "a@x.com", nil); err != nil {
		t.Fatalf("alice update: %v", err)
	}
	got, _ := tasks.GetByID(ctx, t1.ID)
	if got.AssignedUser != bob.ID || got.AssignedUserName != "Bob" {
		t.Errorf("t1 = %q/%q, want still Bob's", got.AssignedUser, got.AssignedUserName)
	}
	assertConsistent(t, tasks, users)
}

func TestUserService_UpdateRequiresNameAndEmail(t *testing.T) {
	userSvc, _, _, _ := newUserFixture(t)
	ctx := context.Background()
	alice, err := userSvc.Create(ctx, "Alice", "a@x.com")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := userSvc.Update(ctx, alice.ID, "", "a@x.com", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("missing name: err = %v, want ErrValidation", err)
	}
	if _, err := userSvc.Update(ctx, alice.ID, "Alice", "", nil); !errors.Is(err, ErrValidation) {
		t.Errorf("missing email: err = %v, want ErrValidation", err)
	}
}

func TestUserService_UpdateNotFound(t *testing.T) {
	userSvc, _, _, _ := newUserFixture(t)
	_, err := userSvc.Update(context.Background(), "nope", "Alice", "a@x.com", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUserService_UpdateDuplicateEmail(t *testing.T) {
	userSvc, _, _, _ := newUserFixture(t)
	ctx := context.Background()
	if _, err := userSvc.Create(ctx, "Alice", "a@x.com"); err != nil {
		t.Fatalf("create alice: %v", err)
	}
	bob, err := userSvc.Create(ctx, "Bob", "b@x.com")
	if err != nil {
		t.Fatalf("create bob: %v", err)
	}
	if _, err := userSvc.Update(ctx, bob.ID, "Bob", "a@x.com", nil); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("err = %v, want ErrEmailTaken", err)
	}
}

func TestUserService_DeleteUnassignsTasks(t *testing.T) {
	userSvc, taskSvc, tasks, users := newUserFixture(t)
	ctx := context.Background()

	alice, err := userSvc.Create(ctx, "Alice", "a@x.com")
	if err != nil {
		t.Fatalf("create alice: %v", err)
	}
	t3, err := taskSvc.Create(ctx, TaskFields{Name: "T3", AssignedUser: alice.ID})
	if err != nil {
		t.Fatalf("create t3: %v", err)
	}

	if err := userSvc.Delete(ctx, alice.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := users.GetByID(ctx, alice.ID); err == nil {
		t.Error("user still exists after delete")
	}
	got, _ := tasks.GetByID(ctx, t3.ID)
	if got.AssignedUser != "" || got.AssignedUserName != domain.UnassignedName {
		t.Errorf("t3 = %q/%q, want unassigned after owner delete", got.AssignedUser, got.AssignedUserName)
	}
	assertConsistent(t, tasks, users)
}

func TestUserService_DeleteNotFound(t *testing.T) {
	userSvc, _, _, _ := newUserFixture(t)
	if err := userSvc.Delete(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
