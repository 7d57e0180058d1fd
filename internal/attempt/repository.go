// Package attempt stores the append-only log of graded answer submissions.
package attempt

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/osolnote/internal/database"
)

// Attempt is one graded submission. Records are never updated or deleted.
type Attempt struct {
	ID         int64     `db:"id"`
	UserID     string    `db:"user_id"`
	ProblemID  int64     `db:"problem_id"`
	UserAnswer string    `db:"user_answer"`
	IsCorrect  bool      `db:"is_correct"`
	CreatedAt  time.Time `db:"created_at"`
}

//go:generate mockgen -source=repository.go -destination=../mocks/attempt/mock_repository.go -package=mock_attempt

// Repository defines the operations on the attempt log.
type Repository interface {
	Append(ctx context.Context, a *Attempt) error
	// FindByUser returns the user's attempts newest first. Attempts sharing a
	// timestamp are ordered by descending id, so the later insert comes first.
	FindByUser(ctx context.Context, userID string) ([]Attempt, error)
}

// DBRepository implements Repository using the configured SQL database.
type DBRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewDBRepository creates a new DBRepository.
func NewDBRepository(db *sqlx.DB) *DBRepository {
	return &DBRepository{db: db, now: time.Now}
}

// Append stamps a with the current time and inserts it.
func (r *DBRepository) Append(ctx context.Context, a *Attempt) error {
	a.CreatedAt = database.Timestamp(r.now())
	id, err := database.InsertReturningID(ctx, r.db,
		"INSERT INTO solve_history (user_id, problem_id, user_answer, is_correct, created_at) VALUES (?, ?, ?, ?, ?)",
		a.UserID, a.ProblemID, a.UserAnswer, a.IsCorrect, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	a.ID = id
	return nil
}

func (r *DBRepository) FindByUser(ctx context.Context, userID string) ([]Attempt, error) {
	var attempts []Attempt
	query := r.db.Rebind("SELECT id, user_id, problem_id, user_answer, is_correct, created_at FROM solve_history WHERE user_id = ? ORDER BY created_at DESC, id DESC")
	if err := r.db.SelectContext(ctx, &attempts, query, userID); err != nil {
		return nil, fmt.Errorf("load attempts of %s: %w", userID, err)
	}
	return attempts, nil
}
