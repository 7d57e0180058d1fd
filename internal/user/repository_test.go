package user

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDBRepository_FindByUsername(t *testing.T) {
	createdAt := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		setupMock func(mock sqlmock.Sqlmock)
		want      *User
		wantErr   error
	}{
		{
			name: "found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT id, username, password_hash, created_at FROM users WHERE username = \\?").
					WithArgs("alice").
					WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}).
						AddRow(1, "alice", "$2a$10$hash", createdAt))
			},
			want: &User{ID: 1, Username: "alice", PasswordHash: "$2a$10$hash", CreatedAt: createdAt},
		},
		{
			name: "not found",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM users").
					WithArgs("alice").
					WillReturnRows(sqlmock.NewRows([]string{"id", "username", "password_hash", "created_at"}))
			},
			wantErr: ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			tt.setupMock(mock)

			got, err := repo.FindByUsername(context.Background(), "alice")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDBRepository_Create(t *testing.T) {
	now := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		setupMock    func(mock sqlmock.Sqlmock)
		wantID       int64
		wantErr      bool
		wantConflict bool
	}{
		{
			name: "creates a user",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO users \\(username, password_hash, created_at\\) VALUES \\(\\?, \\?, \\?\\)").
					WithArgs("alice", "$2a$10$hash", now).
					WillReturnResult(sqlmock.NewResult(5, 1))
			},
			wantID: 5,
		},
		{
			name: "duplicate username",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO users").
					WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice'"})
			},
			wantErr:      true,
			wantConflict: true,
		},
		{
			name: "db error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("INSERT INTO users").
					WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			repo := NewDBRepository(sqlx.NewDb(db, "mysql"))
			repo.now = func() time.Time { return now }
			tt.setupMock(mock)

			u := &User{Username: "alice", PasswordHash: "$2a$10$hash"}
			err = repo.Create(context.Background(), u)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantConflict, errors.Is(err, ErrConflict))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, u.ID)
			assert.Equal(t, now, u.CreatedAt)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
