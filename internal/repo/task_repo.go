package repo

import (
	"context"
	"encoding/json"
	"time"

	"tasktrack/internal/domain"
	"tasktrack/internal/query"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskRepo provides task persistence. AssignMany and UnassignMany are bulk
// compensating updates used by the user-side reconciliation; UnassignMany
// only touches tasks still assigned to the given user.
type TaskRepo interface {
	Create(ctx context.Context, t domain.Task) (domain.Task, error)
	GetByID(ctx context.Context, id string) (domain.Task, error)
	List(ctx context.Context, plan *query.Plan) ([]domain.Task, error)
	Count(ctx context.Context, plan *query.Plan) (int64, error)
	Save(ctx context.Context, t domain.Task) (domain.Task, error)
	AssignMany(ctx context.Context, ids []string, userID, userName string) error
	UnassignMany(ctx context.Context, ids []string, userID string) error
	Delete(ctx context.Context, id string) error
}

// taskDoc is the JSONB document shape of a task. The id lives in its own
// column; field names inside the doc match the wire names so dynamic
// `where` filters apply directly.
type taskDoc struct {
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	Deadline         *time.Time `json:"deadline"`
	Completed        bool       `json:"completed"`
	AssignedUser     string     `json:"assignedUser"`
	AssignedUserName string     `json:"assignedUserName"`
}

func taskToDoc(t domain.Task) taskDoc {
	return taskDoc{
		Name:             t.Name,
		Description:      t.Description,
		Deadline:         t.Deadline,
		Completed:        t.Completed,
		AssignedUser:     t.AssignedUser,
		AssignedUserName: t.AssignedUserName,
	}
}

func (d taskDoc) toDomain(id string) domain.Task {
	return domain.Task{
		ID:               id,
		Name:             d.Name,
		Description:      d.Description,
		Deadline:         d.Deadline,
		Completed:        d.Completed,
		AssignedUser:     d.AssignedUser,
		AssignedUserName: d.AssignedUserName,
	}
}

// PGTaskRepo implements TaskRepo with Postgres JSONB documents.
type PGTaskRepo struct {
	db *pgxpool.Pool
}

// NewPGTaskRepo returns a new PGTaskRepo.
func NewPGTaskRepo(db *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{db: db}
}

func (r *PGTaskRepo) Create(ctx context.Context, t domain.Task) (domain.Task, error) {
	doc, err := json.Marshal(taskToDoc(t))
	if err != nil {
		return domain.Task{}, err
	}
	var id string
	err = r.db.QueryRow(ctx, `INSERT INTO tasks (doc) VALUES ($1) RETURNING id`, doc).Scan(&id)
	if err != nil {
		return domain.Task{}, err
	}
	t.ID = id
	return t, nil
}

func (r *PGTaskRepo) GetByID(ctx context.Context, id string) (domain.Task, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT doc FROM tasks WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		return domain.Task{}, err
	}
	var doc taskDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.Task{}, err
	}
	return doc.toDomain(id), nil
}

func (r *PGTaskRepo) List(ctx context.Context, plan *query.Plan) ([]domain.Task, error) {
	clauses, args := planClauses(plan, true)
	rows, err := r.db.Query(ctx, `SELECT id, doc FROM tasks`+clauses, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.Task
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var doc taskDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		list = append(list, doc.toDomain(id))
	}
	return list, rows.Err()
}

func (r *PGTaskRepo) Count(ctx context.Context, plan *query.Plan) (int64, error) {
	clauses, args := planClauses(plan, false)
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks`+clauses, args...).Scan(&n)
	return n, err
}

// Save replaces the whole document of a previously fetched task.
func (r *PGTaskRepo) Save(ctx context.Context, t domain.Task) (domain.Task, error) {
	doc, err := json.Marshal(taskToDoc(t))
	if err != nil {
		return domain.Task{}, err
	}
	var id string
	err = r.db.QueryRow(ctx, `UPDATE tasks SET doc = $2 WHERE id = $1 RETURNING id`, t.ID, doc).Scan(&id)
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (r *PGTaskRepo) AssignMany(ctx context.Context, ids []string, userID, userName string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE tasks
		SET doc = doc || jsonb_build_object('assignedUser', $2::text, 'assignedUserName', $3::text)
		WHERE id = ANY($1)`, ids, userID, userName)
	return err
}

func (r *PGTaskRepo) UnassignMany(ctx context.Context, ids []string, userID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE tasks
		SET doc = doc || jsonb_build_object('assignedUser', ''::text, 'assignedUserName', $3::text)
		WHERE id = ANY($1) AND doc->>'assignedUser' = $2`, ids, userID, domain.UnassignedName)
	return err
}

func (r *PGTaskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}
