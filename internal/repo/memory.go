package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"tasktrack/internal/domain"
	"tasktrack/internal/query"
	"tasktrack/internal/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// In-memory TaskRepo/UserRepo for tests. They return the same error
// signals as the Postgres implementations: pgx.ErrNoRows for missing
// documents and a pgconn 23505 error for duplicate emails.

// MemTaskRepo is an in-memory TaskRepo.
type MemTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]domain.Task
	order []string
}

// NewMemTaskRepo returns an empty MemTaskRepo.
func NewMemTaskRepo() *MemTaskRepo {
	return &MemTaskRepo{tasks: map[string]domain.Task{}}
}

func (r *MemTaskRepo) Create(_ context.Context, t domain.Task) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t.ID = utils.NewID()
	r.tasks[t.ID] = t
	r.order = append(r.order, t.ID)
	return t, nil
}

func (r *MemTaskRepo) GetByID(_ context.Context, id string) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return domain.Task{}, pgx.ErrNoRows
	}
	return t, nil
}

func (r *MemTaskRepo) List(_ context.Context, plan *query.Plan) ([]domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var docs []planDoc
	for _, id := range r.order {
		docs = append(docs, planDoc{id: id, doc: toDocMap(taskToDoc(r.tasks[id]), id)})
	}
	var out []domain.Task
	for _, d := range applyPlan(plan, docs) {
		out = append(out, r.tasks[d.id])
	}
	return out, nil
}

func (r *MemTaskRepo) Count(_ context.Context, plan *query.Plan) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range r.order {
		if matchWhere(plan, toDocMap(taskToDoc(r.tasks[id]), id)) {
			n++
		}
	}
	return n, nil
}

func (r *MemTaskRepo) Save(_ context.Context, t domain.Task) (domain.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return domain.Task{}, pgx.ErrNoRows
	}
	r.tasks[t.ID] = t
	return t, nil
}

func (r *MemTaskRepo) AssignMany(_ context.Context, ids []string, userID, userName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if t, ok := r.tasks[id]; ok {
			t.AssignedUser = userID
			t.AssignedUserName = userName
			r.tasks[id] = t
		}
	}
	return nil
}

func (r *MemTaskRepo) UnassignMany(_ context.Context, ids []string, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if t, ok := r.tasks[id]; ok && t.AssignedUser == userID {
			t.AssignedUser = ""
			t.AssignedUserName = domain.UnassignedName
			r.tasks[id] = t
		}
	}
	return nil
}

func (r *MemTaskRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tasks, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// MemUserRepo is an in-memory UserRepo.
type MemUserRepo struct {
	mu    sync.Mutex
	users map[string]domain.User
	order []string
}

// NewMemUserRepo returns an empty MemUserRepo.
func NewMemUserRepo() *MemUserRepo {
	return &MemUserRepo{users: map[string]domain.User{}}
}

func (r *MemUserRepo) Create(_ context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.emailTaken(u.Email, "") {
		return domain.User{}, uniqueViolation()
	}
	u.ID = utils.NewID()
	if u.PendingTasks == nil {
		u.PendingTasks = []string{}
	}
	r.users[u.ID] = u
	r.order = append(r.order, u.ID)
	return u, nil
}

func (r *MemUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return cloneUser(u), nil
}

func (r *MemUserRepo) List(_ context.Context, plan *query.Plan) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var docs []planDoc
	for _, id := range r.order {
		docs = append(docs, planDoc{id: id, doc: toDocMap(userToDoc(r.users[id]), id)})
	}
	var out []domain.User
	for _, d := range applyPlan(plan, docs) {
		out = append(out, cloneUser(r.users[d.id]))
	}
	return out, nil
}

func (r *MemUserRepo) Count(_ context.Context, plan *query.Plan) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, id := range r.order {
		if matchWhere(plan, toDocMap(userToDoc(r.users[id]), id)) {
			n++
		}
	}
	return n, nil
}

func (r *MemUserRepo) Save(_ context.Context, u domain.User) (domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[u.ID]; !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	if r.emailTaken(u.Email, u.ID) {
		return domain.User{}, uniqueViolation()
	}
	if u.PendingTasks == nil {
		u.PendingTasks = []string{}
	}
	r.users[u.ID] = cloneUser(u)
	return u, nil
}

func (r *MemUserRepo) AddPendingTask(_ context.Context, userID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok || u.HasPending(taskID) {
		return nil
	}
	u.PendingTasks = append(u.PendingTasks, taskID)
	r.users[userID] = u
	return nil
}

func (r *MemUserRepo) RemovePendingTask(_ context.Context, userID, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil
	}
	kept := u.PendingTasks[:0]
	for _, id := range u.PendingTasks {
		if id != taskID {
			kept = append(kept, id)
		}
	}
	u.PendingTasks = kept
	r.users[userID] = u
	return nil
}

func (r *MemUserRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemUserRepo) emailTaken(email, exceptID string) bool {
	for id, u := range r.users {
		if id != exceptID && u.Email == email {
			return true
		}
	}
	return false
}

func cloneUser(u domain.User) domain.User {
	u.PendingTasks = append([]string(nil), u.PendingTasks...)
	if u.PendingTasks == nil {
		u.PendingTasks = []string{}
	}
	return u
}

func uniqueViolation() error {
	return &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
}

// planDoc pairs a document id with its JSON map form for plan evaluation.
type planDoc struct {
	id  string
	doc map[string]any
}

func toDocMap(v any, id string) map[string]any {
	b, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"_id": id}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"_id": id}
	}
	m["_id"] = id
	return m
}

func matchWhere(plan *query.Plan, doc map[string]any) bool {
	if plan == nil {
		return true
	}
	for k, want := range plan.Where {
		if !reflect.DeepEqual(doc[k], want) {
			return false
		}
	}
	return true
}

func applyPlan(plan *query.Plan, docs []planDoc) []planDoc {
	var kept []planDoc
	for _, d := range docs {
		if matchWhere(plan, d.doc) {
			kept = append(kept, d)
		}
	}
	if plan == nil {
		return kept
	}
	if len(plan.Sort) > 0 {
		sort.SliceStable(kept, func(i, j int) bool {
			for _, s := range plan.Sort {
				cmp := compareValues(kept[i].doc[s.Key], kept[j].doc[s.Key])
				if cmp == 0 {
					continue
				}
				if s.Desc {
					return cmp > 0
				}
				return cmp < 0
			}
			return false
		})
	}
	if plan.Skip != nil {
		if *plan.Skip >= len(kept) {
			kept = nil
		} else if *plan.Skip > 0 {
			kept = kept[*plan.Skip:]
		}
	}
	if plan.Limit != nil && *plan.Limit < len(kept) {
		if *plan.Limit <= 0 {
			kept = nil
		} else {
			kept = kept[:*plan.Limit]
		}
	}
	return kept
}

func compareValues(a, b any) int {
	af, aok := a.(float64)
	bf, bok := b.(float64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	as := fmt.Sprint(a)
	bs := fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}
