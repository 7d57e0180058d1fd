package problem

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var problemRowColumns = []string{
	"id", "subject", "domain", "title", "body", "source", "answer", "score", "difficulty", "solution", "image1", "image2", "created_at",
}

func newTestRepository(t *testing.T, driverName string) (*DBRepository, sqlmock.Sqlmock, time.Time) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	repo := NewDBRepository(sqlx.NewDb(db, driverName))
	repo.now = func() time.Time { return now }
	return repo, mock, now
}

func TestDBRepository_FindByID(t *testing.T) {
	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	solution := "2x = 84"

	tests := []struct {
		name         string
		setupMock    func(mock sqlmock.Sqlmock)
		want         *Problem
		wantNotFound bool
		wantErr      bool
	}{
		{
			name: "returns the problem",
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(problemRowColumns).
					AddRow(1, "math", "algebra", "Linear", "Solve 2x = 84", "2024 mock", "42", 4, 3, solution, nil, nil, createdAt)
				mock.ExpectQuery("SELECT (.+) FROM problems WHERE id = \\?").WithArgs(int64(1)).WillReturnRows(rows)
			},
			want: &Problem{
				ID: 1, Subject: "math", Domain: "algebra", Title: "Linear", Body: "Solve 2x = 84",
				Source: "2024 mock", Answer: "42", Score: 4, Difficulty: 3, Solution: &solution, CreatedAt: createdAt,
			},
		},
		{
			name: "missing problem",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM problems WHERE id = \\?").WithArgs(int64(1)).
					WillReturnRows(sqlmock.NewRows(problemRowColumns))
			},
			wantErr:      true,
			wantNotFound: true,
		},
		{
			name: "db error",
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM problems WHERE id = \\?").WithArgs(int64(1)).
					WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newTestRepository(t, "mysql")
			tt.setupMock(mock)

			got, err := repo.FindByID(context.Background(), 1)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantNotFound, errors.Is(err, ErrNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_FindByIDs(t *testing.T) {
	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		driverName string
		ids        []int64
		setupMock  func(mock sqlmock.Sqlmock)
		wantIDs    []int64
		wantErr    bool
	}{
		{
			name:       "loads problems newest first",
			driverName: "mysql",
			ids:        []int64{3, 4},
			setupMock: func(mock sqlmock.Sqlmock) {
				rows := sqlmock.NewRows(problemRowColumns).
					AddRow(4, "", "", "", "P4", "", "1", 0, 0, nil, nil, nil, createdAt.Add(time.Hour)).
					AddRow(3, "", "", "", "P3", "", "1", 0, 0, nil, nil, nil, createdAt)
				mock.ExpectQuery("SELECT (.+) FROM problems WHERE id IN \\(\\?, \\?\\) ORDER BY created_at DESC, id DESC").
					WithArgs(int64(3), int64(4)).
					WillReturnRows(rows)
			},
			wantIDs: []int64{4, 3},
		},
		{
			name:       "rebinds placeholders for postgres",
			driverName: "postgres",
			ids:        []int64{3, 4},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM problems WHERE id IN \\(\\$1, \\$2\\)").
					WithArgs(int64(3), int64(4)).
					WillReturnRows(sqlmock.NewRows(problemRowColumns).
						AddRow(3, "", "", "", "P3", "", "1", 0, 0, nil, nil, nil, createdAt))
			},
			wantIDs: []int64{3},
		},
		{
			name:       "empty id set does not query",
			driverName: "mysql",
			ids:        nil,
			setupMock:  func(mock sqlmock.Sqlmock) {},
			wantIDs:    nil,
		},
		{
			name:       "db error",
			driverName: "mysql",
			ids:        []int64{1},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM problems").WillReturnError(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newTestRepository(t, tt.driverName)
			tt.setupMock(mock)

			got, err := repo.FindByIDs(context.Background(), tt.ids)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			var gotIDs []int64
			for _, p := range got {
				gotIDs = append(gotIDs, p.ID)
			}
			assert.Equal(t, tt.wantIDs, gotIDs)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_FindAll(t *testing.T) {
	createdAt := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		filter    Filter
		setupMock func(mock sqlmock.Sqlmock)
	}{
		{
			name:   "no filter",
			filter: Filter{},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM problems ORDER BY created_at DESC, id DESC").
					WillReturnRows(sqlmock.NewRows(problemRowColumns).
						AddRow(1, "", "algebra", "", "P1", "", "1", 0, 0, nil, nil, nil, createdAt))
			},
		},
		{
			name:   "domain and source filters are trimmed",
			filter: Filter{Domain: " algebra ", Source: "2024 mock "},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT (.+) FROM problems WHERE TRIM\\(domain\\) = \\? AND TRIM\\(source\\) = \\? ORDER BY").
					WithArgs("algebra", "2024 mock").
					WillReturnRows(sqlmock.NewRows(problemRowColumns).
						AddRow(1, "", "algebra", "", "P1", "2024 mock", "1", 0, 0, nil, nil, nil, createdAt))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newTestRepository(t, "mysql")
			tt.setupMock(mock)

			got, err := repo.FindAll(context.Background(), tt.filter)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "algebra", got[0].Domain)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_Create(t *testing.T) {
	repo, mock, now := newTestRepository(t, "mysql")

	mock.ExpectExec("INSERT INTO problems \\(subject, domain, title, body, source, answer, score, difficulty, solution, image1, image2, created_at\\)").
		WithArgs("math", "algebra", "", "Solve", "", "42", 4, 2, nil, nil, nil, now).
		WillReturnResult(sqlmock.NewResult(9, 1))

	p := &Problem{Subject: "math", Domain: "algebra", Body: "Solve", Answer: "42", Score: 4, Difficulty: 2}
	require.NoError(t, repo.Create(context.Background(), p))
	assert.Equal(t, int64(9), p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDBRepository_BatchCreate(t *testing.T) {
	tests := []struct {
		name      string
		problems  []*Problem
		setupMock func(mock sqlmock.Sqlmock, now time.Time)
		wantErr   bool
	}{
		{
			name: "creates multiple problems with multi-row insert",
			problems: []*Problem{
				{Body: "P1", Answer: "1"},
				{Body: "P2", Answer: "2", Score: 3},
			},
			setupMock: func(mock sqlmock.Sqlmock, now time.Time) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO problems \\(subject, domain, title, body, source, answer, score, difficulty, solution, image1, image2, created_at\\) VALUES \\(\\?(, \\?){11}\\), \\(\\?(, \\?){11}\\)").
					WithArgs(
						"", "", "", "P1", "", "1", 0, 0, nil, nil, nil, now,
						"", "", "", "P2", "", "2", 3, 0, nil, nil, nil, now,
					).
					WillReturnResult(sqlmock.NewResult(1, 2))
				mock.ExpectCommit()
			},
		},
		{
			name:      "empty slice returns nil",
			problems:  []*Problem{},
			setupMock: func(mock sqlmock.Sqlmock, now time.Time) {},
		},
		{
			name:     "db error rolls back",
			problems: []*Problem{{Body: "P1", Answer: "1"}},
			setupMock: func(mock sqlmock.Sqlmock, now time.Time) {
				mock.ExpectBegin()
				mock.ExpectExec("INSERT INTO problems").WillReturnError(fmt.Errorf("duplicate entry"))
				mock.ExpectRollback()
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, now := newTestRepository(t, "mysql")
			tt.setupMock(mock, now)

			err := repo.BatchCreate(context.Background(), tt.problems)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_Update(t *testing.T) {
	newImage := "https://cdn.example.com/a.png"

	tests := []struct {
		name      string
		update    Update
		setupMock func(mock sqlmock.Sqlmock)
	}{
		{
			name:   "keeps images when not requested",
			update: Update{Body: "B", Answer: "A"},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE problems SET subject = \\?, domain = \\?, title = \\?, body = \\?, source = \\?, answer = \\?, score = \\?, difficulty = \\?, solution = \\? WHERE id = \\?").
					WithArgs("", "", "", "B", "", "A", 0, 0, nil, int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "sets one image and clears the other",
			update: Update{
				Body: "B", Answer: "A",
				Image1: &ImageUpdate{URL: &newImage},
				Image2: &ImageUpdate{},
			},
			setupMock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec("UPDATE problems SET (.+), image1 = \\?, image2 = \\? WHERE id = \\?").
					WithArgs("", "", "", "B", "", "A", 0, 0, nil, newImage, nil, int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, _ := newTestRepository(t, "mysql")
			tt.setupMock(mock)

			require.NoError(t, repo.Update(context.Background(), 5, tt.update))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDBRepository_Delete(t *testing.T) {
	repo, mock, _ := newTestRepository(t, "mysql")
	mock.ExpectExec("DELETE FROM problems WHERE id = \\?").WithArgs(int64(5)).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFacets(t *testing.T) {
	problems := []Problem{
		{Domain: "geometry ", Source: "2024 mock"},
		{Domain: "algebra", Source: ""},
		{Domain: " geometry", Source: "2023 final"},
		{Domain: "", Source: "2024 mock"},
	}

	domains, sources := Facets(problems)
	assert.Equal(t, []string{"algebra", "geometry"}, domains)
	assert.Equal(t, []string{"2023 final", "2024 mock"}, sources)
}
