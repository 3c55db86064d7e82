package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tasktrack/internal/cache"
	"tasktrack/internal/domain"
	"tasktrack/internal/query"
	"tasktrack/internal/repo"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

// TaskFields is the desired state of a task as submitted by a caller.
type TaskFields struct {
	Name         string
	Description  string
	Deadline     *time.Time
	Completed    bool
	AssignedUser string
}

// TaskService owns the task side of assignment reconciliation: every task
// write computes and applies the compensating updates needed on the
// referenced users' pendingTasks lists. There is no cross-entity
// transaction; steps are ordered so a failure partway through leaves the
// user side under-linked relative to the task, which a retry of the same
// call repairs (every compensation is idempotent).
type TaskService struct {
	tasks repo.TaskRepo
	users repo.UserRepo
	cache *cache.QueryCache
	sf    singleflight.Group
}

// NewTaskService creates a TaskService. If c is nil, caching is disabled.
func NewTaskService(tasks repo.TaskRepo, users repo.UserRepo, c *cache.QueryCache) *TaskService {
	return &TaskService{tasks: tasks, users: users, cache: c}
}

// Create validates the fields, resolves the assignee (if any), persists
// the task, and then links it into the assignee's pendingTasks. The task
// is persisted first so it has an identifier; if linking the user fails
// afterwards the task stays persisted and the error is returned.
func (s *TaskService) Create(ctx context.Context, f TaskFields) (domain.Task, error) {
	if f.Name == "" {
		return domain.Task{}, fmt.Errorf("%w: name is required", ErrValidation)
	}

	t := domain.Task{
		Name:             f.Name,
		Description:      f.Description,
		Deadline:         f.Deadline,
		Completed:        f.Completed,
		AssignedUser:     f.AssignedUser,
		AssignedUserName: domain.UnassignedName,
	}

	if f.AssignedUser != "" {
		u, err := s.users.GetByID(ctx, f.AssignedUser)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Task{}, ErrUserRef
			}
			return domain.Task{}, err
		}
		t.AssignedUserName = u.Name
	}

	created, err := s.tasks.Create(ctx, t)
	if err != nil {
		return domain.Task{}, err
	}

	if created.Assigned() && !created.Completed {
		if err := s.users.AddPendingTask(ctx, created.AssignedUser, created.ID); err != nil {
			return domain.Task{}, err
		}
	}
	s.invalidateCache(ctx)
	return created, nil
}

// Update applies the full desired state to an existing task. Both name and
// deadline are required here, unlike Create. Compensation order:
//  1. link into the new assignee's pendingTasks (skipped when completed),
//  2. unlink from the previous assignee if the assignment changed,
//  3. unlink from the current assignee if the task is now completed,
//  4. save the task itself last.
// A mid-sequence failure therefore leaves pendingTasks under-populated
// relative to the task's final state, never over-populated or dangling.
func (s *TaskService) Update(ctx context.Context, id string, f TaskFields) (domain.Task, error) {
	if f.Name == "" || f.Deadline == nil {
		return domain.Task{}, fmt.Errorf("%w: name and deadline are required", ErrValidation)
	}

	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, err
	}

	prevUser := t.AssignedUser
	nextUser := f.AssignedUser

	t.Name = f.Name
	t.Description = f.Description
	t.Deadline = f.Deadline
	t.Completed = f.Completed
	t.AssignedUser = nextUser
	if nextUser == "" {
		t.AssignedUserName = domain.UnassignedName
	}

	if nextUser != "" {
		u, err := s.users.GetByID(ctx, nextUser)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.Task{}, ErrUserRef
			}
			return domain.Task{}, err
		}
		t.AssignedUserName = u.Name
		if !t.Completed {
			if err := s.users.AddPendingTask(ctx, nextUser, t.ID); err != nil {
				return domain.Task{}, err
			}
		}
	}

	if prevUser != "" && prevUser != nextUser {
		if err := s.users.RemovePendingTask(ctx, prevUser, t.ID); err != nil {
			return domain.Task{}, err
		}
	}

	// A completed task is never pending, even when the assignee is unchanged.
	if t.Completed && nextUser != "" {
		if err := s.users.RemovePendingTask(ctx, nextUser, t.ID); err != nil {
			return domain.Task{}, err
		}
	}

	saved, err := s.tasks.Save(ctx, t)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, err
	}
	s.invalidateCache(ctx)
	return saved, nil
}

// Delete removes the task, unlinking it from its assignee first so the
// pendingTasks list never points at a task that no longer exists.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if t.Assigned() {
		if err := s.users.RemovePendingTask(ctx, t.AssignedUser, t.ID); err != nil {
			return err
		}
	}
	if err := s.tasks.Delete(ctx, t.ID); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *TaskService) GetByID(ctx context.Context, id string) (domain.Task, error) {
	t, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Task{}, ErrNotFound
		}
		return domain.Task{}, err
	}
	return t, nil
}

func (s *TaskService) List(ctx context.Context, plan *query.Plan) ([]domain.Task, error) {
	if s.cache != nil {
		key := plan.Key()
		v, err, _ := s.sf.Do("tasks:"+key, func() (interface{}, error) {
			if list, err := s.cache.GetTasks(ctx, key); err == nil && list != nil {
				return list, nil
			}
			list, err := s.tasks.List(ctx, plan)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetTasks(ctx, key, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]domain.Task), nil
	}
	return s.tasks.List(ctx, plan)
}

func (s *TaskService) Count(ctx context.Context, plan *query.Plan) (int64, error) {
	return s.tasks.Count(ctx, plan)
}

func (s *TaskService) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateAll(ctx)
	}
}
