// Package bookmark stores the problems users have marked for review.
package bookmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/osolnote/internal/database"
)

// ErrConflict is returned by Insert when the pair is already bookmarked.
var ErrConflict = errors.New("bookmark already exists")

//go:generate mockgen -source=repository.go -destination=../mocks/bookmark/mock_repository.go -package=mock_bookmark

// Repository defines the operations on review bookmarks.
// A (user, problem) pair is bookmarked while its row exists.
type Repository interface {
	Insert(ctx context.Context, userID string, problemID int64) error
	// Delete succeeds when nothing is bookmarked.
	Delete(ctx context.Context, userID string, problemID int64) error
	FindProblemIDsByUser(ctx context.Context, userID string) ([]int64, error)
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

func (r *DBRepository) Insert(ctx context.Context, userID string, problemID int64) error {
	query := r.db.Rebind("INSERT INTO review_bookmarks (user_id, problem_id, created_at) VALUES (?, ?, ?)")
	if _, err := r.db.ExecContext(ctx, query, userID, problemID, database.Timestamp(r.now())); err != nil {
		if database.IsDuplicateKey(err) {
			return fmt.Errorf("bookmark problem %d for %s: %w", problemID, userID, ErrConflict)
		}
		return fmt.Errorf("bookmark problem %d for %s: %w", problemID, userID, err)
	}
	return nil
}

func (r *DBRepository) Delete(ctx context.Context, userID string, problemID int64) error {
	query := r.db.Rebind("DELETE FROM review_bookmarks WHERE user_id = ? AND problem_id = ?")
	if _, err := r.db.ExecContext(ctx, query, userID, problemID); err != nil {
		return fmt.Errorf("remove bookmark of problem %d for %s: %w", problemID, userID, err)
	}
	return nil
}

func (r *DBRepository) FindProblemIDsByUser(ctx context.Context, userID string) ([]int64, error) {
	var ids []int64
	query := r.db.Rebind("SELECT problem_id FROM review_bookmarks WHERE user_id = ?")
	if err := r.db.SelectContext(ctx, &ids, query, userID); err != nil {
		return nil, fmt.Errorf("load bookmarks of %s: %w", userID, err)
	}
	return ids, nil
}
