// Package user stores login accounts.
package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/osolnote/internal/database"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrConflict = errors.New("username already taken")
)

// User is a login account. The username doubles as the user id recorded in
// attempts and bookmarks.
type User struct {
	ID           int64     `db:"id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

//go:generate mockgen -source=repository.go -destination=../mocks/user/mock_repository.go -package=mock_user

// Repository defines the operations on user accounts.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Create(ctx context.Context, u *User) error
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

func (r *DBRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	query := r.db.Rebind("SELECT id, username, password_hash, created_at FROM users WHERE username = ?")
	if err := r.db.GetContext(ctx, &u, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("find user %s: %w", username, ErrNotFound)
		}
		return nil, fmt.Errorf("find user %s: %w", username, err)
	}
	return &u, nil
}

// Create inserts u. ErrConflict is returned when the username exists.
func (r *DBRepository) Create(ctx context.Context, u *User) error {
	u.CreatedAt = database.Timestamp(r.now())
	id, err := database.InsertReturningID(ctx, r.db,
		"INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)",
		u.Username, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		if database.IsDuplicateKey(err) {
			return fmt.Errorf("create user %s: %w", u.Username, ErrConflict)
		}
		return fmt.Errorf("create user %s: %w", u.Username, err)
	}
	u.ID = id
	return nil
}
