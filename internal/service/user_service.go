package service

import (
	"context"
	"errors"
	"fmt"

	"tasktrack/internal/cache"
	"tasktrack/internal/domain"
	"tasktrack/internal/query"
	"tasktrack/internal/repo"
	"tasktrack/internal/utils"

	"github.com/jackc/pgx/v5"
	"golang.org/x/sync/singleflight"
)

// UserService owns the user side of assignment reconciliation. Its update
// operation treats the submitted pendingTasks list as authoritative: tasks
// that left the list are unassigned (only if still assigned to this user),
// tasks that entered it are assigned to this user unconditionally, even if
// that steals them from a different assignee.
type UserService struct {
	users repo.UserRepo
	tasks repo.TaskRepo
	cache *cache.QueryCache
	sf    singleflight.Group
}

// NewUserService creates a UserService. If c is nil, caching is disabled.
func NewUserService(users repo.UserRepo, tasks repo.TaskRepo, c *cache.QueryCache) *UserService {
	return &UserService{users: users, tasks: tasks, cache: c}
}

// Create inserts a user with an empty pendingTasks list. Assignments can
// only be established through task writes or a later user update.
func (s *UserService) Create(ctx context.Context, name, email string) (domain.User, error) {
	if name == "" || email == "" {
		return domain.User{}, fmt.Errorf("%w: name and email are required", ErrValidation)
	}
	u, err := s.users.Create(ctx, domain.User{Name: name, Email: email, PendingTasks: []string{}})
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return domain.User{}, ErrEmailTaken
		}
		return domain.User{}, err
	}
	s.invalidateCache(ctx)
	return u, nil
}

// Update replaces the user's fields and reconciles the task side against
// the submitted pendingTasks list. The diff against the stored list yields
// two disjoint sets, each applied as one bulk compensating update before
// the user document itself is saved with the submitted list verbatim.
func (s *UserService) Update(ctx context.Context, id, name, email string, pendingTasks []string) (domain.User, error) {
	if name == "" || email == "" {
		return domain.User{}, fmt.Errorf("%w: name and email are required", ErrValidation)
	}

	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}

	if pendingTasks == nil {
		pendingTasks = []string{}
	}
	toUnassign := difference(u.PendingTasks, pendingTasks)
	toAssign := difference(pendingTasks, u.PendingTasks)

	if len(toUnassign) > 0 {
		if err := s.tasks.UnassignMany(ctx, toUnassign, u.ID); err != nil {
			return domain.User{}, err
		}
	}
	if len(toAssign) > 0 {
		// Last writer wins: tasks entering the list are taken over even if
		// they belonged to somebody else, and the previous owner's list is
		// purged so the takeover leaves no stale membership behind.
		for _, taskID := range toAssign {
			t, err := s.tasks.GetByID(ctx, taskID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					continue
				}
				return domain.User{}, err
			}
			if t.Assigned() && t.AssignedUser != u.ID {
				if err := s.users.RemovePendingTask(ctx, t.AssignedUser, taskID); err != nil {
					return domain.User{}, err
				}
			}
		}
		if err := s.tasks.AssignMany(ctx, toAssign, u.ID, name); err != nil {
			return domain.User{}, err
		}
	}

	u.Name = name
	u.Email = email
	u.PendingTasks = pendingTasks

	saved, err := s.users.Save(ctx, u)
	if err != nil {
		if utils.IsPGUniqueViolation(err) {
			return domain.User{}, ErrEmailTaken
		}
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	s.invalidateCache(ctx)
	return saved, nil
}

// Delete removes the user after unassigning every task still pointing at
// it, so no task is left referencing a user that no longer exists.
func (s *UserService) Delete(ctx context.Context, id string) error {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if len(u.PendingTasks) > 0 {
		if err := s.tasks.UnassignMany(ctx, u.PendingTasks, u.ID); err != nil {
			return err
		}
	}
	if err := s.users.Delete(ctx, u.ID); err != nil {
		return err
	}
	s.invalidateCache(ctx)
	return nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, plan *query.Plan) ([]domain.User, error) {
	if s.cache != nil {
		key := plan.Key()
		v, err, _ := s.sf.Do("users:"+key, func() (interface{}, error) {
			if list, err := s.cache.GetUsers(ctx, key); err == nil && list != nil {
				return list, nil
			}
			list, err := s.users.List(ctx, plan)
			if err != nil {
				return nil, err
			}
			_ = s.cache.SetUsers(ctx, key, list)
			return list, nil
		})
		if err != nil {
			return nil, err
		}
		return v.([]domain.User), nil
	}
	return s.users.List(ctx, plan)
}

func (s *UserService) Count(ctx context.Context, plan *query.Plan) (int64, error) {
	return s.users.Count(ctx, plan)
}

func (s *UserService) invalidateCache(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateAll(ctx)
	}
}

// difference returns the elements of a that are not in b, preserving order.
func difference(a, b []string) []string {
	inB := make(map[string]struct{}, len(b))
	for _, id := range b {
		inB[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := inB[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
