// Package problem provides the problem catalog storage.
package problem

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/osolnote/internal/database"
)

//go:generate mockgen -source=repository.go -destination=../mocks/problem/mock_repository.go -package=mock_problem

// Repository defines operations for reading and managing the problem catalog.
type Repository interface {
	FindByID(ctx context.Context, id int64) (*Problem, error)
	// FindByIDs returns the problems among ids that still exist, newest first.
	FindByIDs(ctx context.Context, ids []int64) ([]Problem, error)
	FindAll(ctx context.Context, filter Filter) ([]Problem, error)
	Create(ctx context.Context, p *Problem) error
	BatchCreate(ctx context.Context, problems []*Problem) error
	Update(ctx context.Context, id int64, update Update) error
	Delete(ctx context.Context, id int64) error
}

const problemColumns = "id, subject, domain, title, body, source, answer, score, difficulty, solution, image1, image2, created_at"

// DBRepository implements Repository using the configured SQL database.
type DBRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db, now: time.Now}
}

// FindByID returns ErrNotFound when no problem has the id.
func (r *DBRepository) FindByID(ctx context.Context, id int64) (*Problem, error) {
	var p Problem
	query := r.db.Rebind("SELECT " + problemColumns + " FROM problems WHERE id = ?")
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find problem %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("find problem %d: %w", id, err)
	}
	return &p, nil
}

func (r *DBRepository) FindByIDs(ctx context.Context, ids []int64) ([]Problem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT "+problemColumns+" FROM problems WHERE id IN (?) ORDER BY created_at DESC, id DESC", ids)
	if err != nil {
		return nil, fmt.Errorf("build problems query: %w", err)
	}
	var problems []Problem
	if err := r.db.SelectContext(ctx, &problems, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load problems by ids: %w", err)
	}
	return problems, nil
}

// FindAll returns the problems matching filter, newest first.
func (r *DBRepository) FindAll(ctx context.Context, filter Filter) ([]Problem, error) {
	var conditions []string
	var args []interface{}
	if domain := strings.TrimSpace(filter.Domain); domain != "" {
		conditions = append(conditions, "TRIM(domain) = ?")
		args = append(args, domain)
	}
	if source := strings.TrimSpace(filter.Source); source != "" {
		conditions = append(conditions, "TRIM(source) = ?")
		args = append(args, source)
	}

	query := "SELECT " + problemColumns + " FROM problems"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	var problems []Problem
	if err := r.db.SelectContext(ctx, &problems, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("load problems: %w", err)
	}
	return problems, nil
}

// Create inserts p and fills in its ID and CreatedAt.
func (r *DBRepository) Create(ctx context.Context, p *Problem) error {
	p.CreatedAt = database.Timestamp(r.now())
	id, err := database.InsertReturningID(ctx, r.db,
		"INSERT INTO problems (subject, domain, title, body, source, answer, score, difficulty, solution, image1, image2, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.Subject, p.Domain, p.Title, p.Body, p.Source, p.Answer, p.Score, p.Difficulty, p.Solution, p.Image1, p.Image2, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert problem: %w", err)
	}
	p.ID = id
	return nil
}

// BatchCreate inserts problems in a single transaction using a multi-row INSERT.
// IDs are not assigned back; callers reload the catalog when they need them.
func (r *DBRepository) BatchCreate(ctx context.Context, problems []*Problem) error {
	if len(problems) == 0 {
		return nil
	}

	now := database.Timestamp(r.now())
	return database.RunInTx(ctx, r.db, func(ctx context.Context, tx *sqlx.Tx) error {
		columns := []string{"subject", "domain", "title", "body", "source", "answer", "score", "difficulty", "solution", "image1", "image2", "created_at"}
		query := database.BuildMultiRowInsert("problems", columns, len(problems))

		var args []interface{}
		for _, p := range problems {
			p.CreatedAt = now
			args = append(args, p.Subject, p.Domain, p.Title, p.Body, p.Source, p.Answer, p.Score, p.Difficulty, p.Solution, p.Image1, p.Image2, p.CreatedAt)
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return fmt.Errorf("insert problems: %w", err)
		}
		return nil
	})
}

func (r *DBRepository) Update(ctx context.Context, id int64, update Update) error {
	sets := []string{
		"subject = ?", "domain = ?", "title = ?", "body = ?", "source = ?",
		"answer = ?", "score = ?", "difficulty = ?", "solution = ?",
	}
	args := []interface{}{
		update.Subject, update.Domain, update.Title, update.Body, update.Source,
		update.Answer, update.Score, update.Difficulty, update.Solution,
	}
	if update.Image1 != nil {
		sets = append(sets, "image1 = ?")
		args = append(args, update.Image1.URL)
	}
	if update.Image2 != nil {
		sets = append(sets, "image2 = ?")
		args = append(args, update.Image2.URL)
	}
	args = append(args, id)

	query := "UPDATE problems SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("update problem %d: %w", id, err)
	}
	return nil
}

// Delete removes the problem. Attempts and bookmarks that reference it are
// kept; review views drop ids that no longer resolve.
func (r *DBRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM problems WHERE id = ?"), id); err != nil {
		return fmt.Errorf("delete problem %d: %w", id, err)
	}
	return nil
}
