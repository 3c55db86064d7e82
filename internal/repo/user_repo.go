package repo

import (
	"context"
	"encoding/json"

	"tasktrack/internal/domain"
	"tasktrack/internal/query"

	"github.com/jackc/pgx/v5/pgxpool"
)

// UserRepo provides user persistence. AddPendingTask and RemovePendingTask
// are atomic set-membership updates on the pendingTasks list: add is a
// no-op when the id is already present, remove is a no-op when it is
// absent. Both replace the read-modify-write of the whole document so two
// concurrent assignments to the same user cannot lose each other.
type UserRepo interface {
	Create(ctx context.Context, u domain.User) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	List(ctx context.Context, plan *query.Plan) ([]domain.User, error)
	Count(ctx context.Context, plan *query.Plan) (int64, error)
	Save(ctx context.Context, u domain.User) (domain.User, error)
	AddPendingTask(ctx context.Context, userID, taskID string) error
	RemovePendingTask(ctx context.Context, userID, taskID string) error
	Delete(ctx context.Context, id string) error
}

type userDoc struct {
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	PendingTasks []string `json:"pendingTasks"`
}

func userToDoc(u domain.User) userDoc {
	pending := u.PendingTasks
	if pending == nil {
		pending = []string{}
	}
	return userDoc{Name: u.Name, Email: u.Email, PendingTasks: pending}
}

func (d userDoc) toDomain(id string) domain.User {
	pending := d.PendingTasks
	if pending == nil {
		pending = []string{}
	}
	return domain.User{ID: id, Name: d.Name, Email: d.Email, PendingTasks: pending}
}

// PGUserRepo implements UserRepo with Postgres JSONB documents.
type PGUserRepo struct {
	db *pgxpool.Pool
}

// NewPGUserRepo returns a new PGUserRepo.
func NewPGUserRepo(db *pgxpool.Pool) *PGUserRepo {
	return &PGUserRepo{db: db}
}

func (r *PGUserRepo) Create(ctx context.Context, u domain.User) (domain.User, error) {
	doc, err := json.Marshal(userToDoc(u))
	if err != nil {
		return domain.User{}, err
	}
	var id string
	err = r.db.QueryRow(ctx, `INSERT INTO users (doc) VALUES ($1) RETURNING id`, doc).Scan(&id)
	if err != nil {
		return domain.User{}, err
	}
	u.ID = id
	if u.PendingTasks == nil {
		u.PendingTasks = []string{}
	}
	return u, nil
}

func (r *PGUserRepo) GetByID(ctx context.Context, id string) (domain.User, error) {
	var raw []byte
	err := r.db.QueryRow(ctx, `SELECT doc FROM users WHERE id = $1`, id).Scan(&raw)
	if err != nil {
		return domain.User{}, err
	}
	var doc userDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return domain.User{}, err
	}
	return doc.toDomain(id), nil
}

func (r *PGUserRepo) List(ctx context.Context, plan *query.Plan) ([]domain.User, error) {
	clauses, args := planClauses(plan, true)
	rows, err := r.db.Query(ctx, `SELECT id, doc FROM users`+clauses, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []domain.User
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var doc userDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		list = append(list, doc.toDomain(id))
	}
	return list, rows.Err()
}

func (r *PGUserRepo) Count(ctx context.Context, plan *query.Plan) (int64, error) {
	clauses, args := planClauses(plan, false)
	var n int64
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM users`+clauses, args...).Scan(&n)
	return n, err
}

// Save replaces the whole document of a previously fetched user. The
// unique index on email surfaces duplicates as a pgconn 23505 error.
func (r *PGUserRepo) Save(ctx context.Context, u domain.User) (domain.User, error) {
	doc, err := json.Marshal(userToDoc(u))
	if err != nil {
		return domain.User{}, err
	}
	var id string
	err = r.db.QueryRow(ctx, `UPDATE users SET doc = $2 WHERE id = $1 RETURNING id`, u.ID, doc).Scan(&id)
	if err != nil {
		return domain.User{}, err
	}
	if u.PendingTasks == nil {
		u.PendingTasks = []string{}
	}
	return u, nil
}

func (r *PGUserRepo) AddPendingTask(ctx context.Context, userID, taskID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET doc = jsonb_set(doc, '{pendingTasks}', doc->'pendingTasks' || to_jsonb($2::text))
		WHERE id = $1 AND NOT doc->'pendingTasks' ? $2`, userID, taskID)
	return err
}

func (r *PGUserRepo) RemovePendingTask(ctx context.Context, userID, taskID string) error {
	_, err := r.db.Exec(ctx, `
		UPDATE users
		SET doc = jsonb_set(doc, '{pendingTasks}', (
			SELECT COALESCE(jsonb_agg(e), '[]'::jsonb)
			FROM jsonb_array_elements(doc->'pendingTasks') AS e
			WHERE e <> to_jsonb($2::text)
		))
		WHERE id = $1 AND doc->'pendingTasks' ? $2`, userID, taskID)
	return err
}

func (r *PGUserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	return err
}
