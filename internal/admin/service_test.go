package admin

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/at-ishikawa/osolnote/internal/attachment"
	mock_attachment "github.com/at-ishikawa/osolnote/internal/mocks/attachment"
	mock_problem "github.com/at-ishikawa/osolnote/internal/mocks/problem"
	"github.com/at-ishikawa/osolnote/internal/problem"
)

func newTestService(t *testing.T) (*Service, *mock_problem.MockRepository, *mock_attachment.MockUploader) {
	t.Helper()
	ctrl := gomock.NewController(t)
	problems := mock_problem.NewMockRepository(ctrl)
	uploader := mock_attachment.NewMockUploader(ctrl)
	svc, err := NewService(problems, uploader)
	require.NoError(t, err)
	return svc, problems, uploader
}

func stringPtr(s string) *string {
	return &s
}

func validRecord() Record {
	return Record{
		Subject:    "math",
		Domain:     "algebra",
		Title:      "Quadratic",
		Body:       "Solve $x^2 = 4$ for positive x.",
		Source:     "2024 mock exam",
		Answer:     "2",
		Score:      3,
		Difficulty: 2,
		Solution:   "x = 2",
	}
}

func TestService_Create(t *testing.T) {
	tests := []struct {
		name         string
		input        func() Input
		setup        func(problems *mock_problem.MockRepository, uploader *mock_attachment.MockUploader)
		wantMessages []string
		wantErr      bool
		want         *problem.Problem
	}{
		{
			name:  "creates with uploaded figures",
			input: func() Input {
				return Input{
					Record:     validRecord(),
					Image1File: &Image{Filename: "q.png", Content: []byte("q")},
					Image2File: &Image{Filename: "s.png", Content: []byte("s")},
				}
			},
			setup: func(problems *mock_problem.MockRepository, uploader *mock_attachment.MockUploader) {
				uploader.EXPECT().Upload(gomock.Any(), "q.png", []byte("q")).Return("https://cdn/q.png", nil)
				uploader.EXPECT().Upload(gomock.Any(), "s.png", []byte("s")).Return("https://cdn/s.png", nil)
				problems.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p *problem.Problem) error {
					p.ID = 10
					return nil
				})
			},
			want: &problem.Problem{
				ID:         10,
				Subject:    "math",
				Domain:     "algebra",
				Title:      "Quadratic",
				Body:       "Solve $x^2 = 4$ for positive x.",
				Source:     "2024 mock exam",
				Answer:     "2",
				Score:      3,
				Difficulty: 2,
				Solution:   stringPtr("x = 2"),
				Image1:     stringPtr("https://cdn/q.png"),
				Image2:     stringPtr("https://cdn/s.png"),
			},
		},
		{
			name: "body and answer are required",
			input: func() Input {
				r := validRecord()
				r.Body = ""
				r.Answer = ""
				return Input{Record: r}
			},
			setup:        func(*mock_problem.MockRepository, *mock_attachment.MockUploader) {},
			wantMessages: []string{"body is a required field", "answer is a required field"},
		},
		{
			name: "difficulty out of range",
			input: func() Input {
				r := validRecord()
				r.Difficulty = 6
				return Input{Record: r}
			},
			setup:        func(*mock_problem.MockRepository, *mock_attachment.MockUploader) {},
			wantMessages: []string{"difficulty must be 5 or less"},
		},
		{
			name: "figure too large",
			input: func() Input {
				return Input{Record: validRecord(), Image1File: &Image{Filename: "big.png", Content: []byte("big")}}
			},
			setup: func(problems *mock_problem.MockRepository, uploader *mock_attachment.MockUploader) {
				uploader.EXPECT().Upload(gomock.Any(), "big.png", gomock.Any()).
					Return("", fmt.Errorf("%w: 3 bytes exceeds 2", attachment.ErrTooLarge))
			},
			wantMessages: []string{"big.png: attachment is too large: 3 bytes exceeds 2"},
		},
		{
			name:  "storage failure",
			input: func() Input { return Input{Record: validRecord()} },
			setup: func(problems *mock_problem.MockRepository, uploader *mock_attachment.MockUploader) {
				problems.EXPECT().Create(gomock.Any(), gomock.Any()).Return(fmt.Errorf("connection refused"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, problems, uploader := newTestService(t)
			tt.setup(problems, uploader)

			got, err := svc.Create(context.Background(), tt.input())
			if tt.wantMessages != nil {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantMessages, ve.Messages)
				return
			}
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_Update(t *testing.T) {
	existing := &problem.Problem{ID: 4, Body: "old", Answer: "1"}

	tests := []struct {
		name    string
		input   Input
		setup   func(problems *mock_problem.MockRepository, uploader *mock_attachment.MockUploader)
		wantErr error
	}{
		{
			name:  "keeps figures that are not touched",
			input: Input{Record: validRecord()},
			setup: func(problems *mock_problem.MockRepository, uploader *mock_attachment.MockUploader) {
				problems.EXPECT().FindByID(gomock.Any(), int64(4)).Return(existing, nil)
				problems.EXPECT().Update(gomock.Any(), int64(4), problem.Update{
					Subject: "math", Domain: "algebra", Title: "Quadratic",
					Body: "Solve $x^2 = 4$ for positive x.", Source: "2024 mock exam",
					Answer: "2", Score: 3, Difficulty: 2, Solution: stringPtr("x = 2"),
				}).Return(nil)
			},
		},
		{
			name: "replaces one figure and deletes the other",
			input: Input{
				Record:       validRecord(),
				Image1File:   &Image{Filename: "new.jpg", Content: []byte("jpg")},
				Image2File:   &Image{Filename: "ignored.jpg", Content: []byte("jpg")},
				DeleteImage2: true,
			},
			setup: func(problems *mock_problem.MockRepository, uploader *mock_attachment.MockUploader) {
				problems.EXPECT().FindByID(gomock.Any(), int64(4)).Return(existing, nil)
				uploader.EXPECT().Upload(gomock.Any(), "new.jpg", []byte("jpg")).Return("https://cdn/new.jpg", nil)
				problems.EXPECT().Update(gomock.Any(), int64(4), gomock.Any()).DoAndReturn(
					func(_ context.Context, _ int64, update problem.Update) error {
						require.NotNil(t, update.Image1)
						assert.Equal(t, stringPtr("https://cdn/new.jpg"), update.Image1.URL)
						require.NotNil(t, update.Image2)
						assert.Nil(t, update.Image2.URL)
						return nil
					})
			},
		},
		{
			name:  "unknown problem",
			input: Input{Record: validRecord()},
			setup: func(problems *mock_problem.MockRepository, uploader *mock_attachment.MockUploader) {
				problems.EXPECT().FindByID(gomock.Any(), int64(4)).
					Return(nil, fmt.Errorf("find problem 4: %w", problem.ErrNotFound))
			},
			wantErr: problem.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, problems, uploader := newTestService(t)
			tt.setup(problems, uploader)

			err := svc.Update(context.Background(), 4, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_Delete(t *testing.T) {
	t.Run("deletes an existing problem", func(t *testing.T) {
		svc, problems, _ := newTestService(t)
		problems.EXPECT().FindByID(gomock.Any(), int64(4)).Return(&problem.Problem{ID: 4}, nil)
		problems.EXPECT().Delete(gomock.Any(), int64(4)).Return(nil)

		assert.NoError(t, svc.Delete(context.Background(), 4))
	})

	t.Run("unknown problem", func(t *testing.T) {
		svc, problems, _ := newTestService(t)
		problems.EXPECT().FindByID(gomock.Any(), int64(4)).
			Return(nil, fmt.Errorf("find problem 4: %w", problem.ErrNotFound))

		assert.ErrorIs(t, svc.Delete(context.Background(), 4), problem.ErrNotFound)
	})
}

func TestService_BulkCreate(t *testing.T) {
	tests := []struct {
		name         string
		records      []Record
		setup        func(problems *mock_problem.MockRepository)
		want         int
		wantMessages []string
	}{
		{
			name:    "stores every record",
			records: []Record{validRecord(), validRecord()},
			setup: func(problems *mock_problem.MockRepository) {
				problems.EXPECT().BatchCreate(gomock.Any(), gomock.Len(2)).Return(nil)
			},
			want: 2,
		},
		{
			name:         "empty",
			records:      nil,
			setup:        func(*mock_problem.MockRepository) {},
			wantMessages: []string{"no problems to import"},
		},
		{
			name:    "one invalid record rejects the batch",
			records: []Record{validRecord(), {Body: "no answer"}},
			setup:   func(*mock_problem.MockRepository) {},
			wantMessages: []string{
				"problem #2: answer is a required field",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, problems, _ := newTestService(t)
			tt.setup(problems)

			got, err := svc.BulkCreate(context.Background(), tt.records)
			if tt.wantMessages != nil {
				var ve *ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, tt.wantMessages, ve.Messages)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeYAML(t *testing.T) {
	t.Run("reads a sequence of problems", func(t *testing.T) {
		input := `- domain: geometry
  body: |
    What is the right angle in degrees?
  answer: "90"
  score: 2
  difficulty: 4
  solution: By definition.
  image1: https://cdn/triangle.png
- domain: algebra
  body: 1 + 1 = ?
  answer: "2"
`
		got, err := DecodeYAML(strings.NewReader(input))
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, Record{
			Domain:     "geometry",
			Body:       "What is the right angle in degrees?\n",
			Answer:     "90",
			Score:      2,
			Difficulty: 4,
			Solution:   "By definition.",
			Image1:     stringPtr("https://cdn/triangle.png"),
		}, got[0])
		assert.Nil(t, got[1].ToProblem().Solution)
	})

	t.Run("malformed YAML", func(t *testing.T) {
		_, err := DecodeYAML(strings.NewReader("- body: [unclosed"))
		assert.Error(t, err)
	})

	t.Run("empty file", func(t *testing.T) {
		got, err := DecodeYAML(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestService_Validate(t *testing.T) {
	svc, _, _ := newTestService(t)

	assert.NoError(t, svc.Validate([]Record{{Body: "1 + 1 = ?", Answer: "2"}}))

	err := svc.Validate(nil)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"no problems to import"}, ve.Messages)

	err = svc.Validate([]Record{{Body: "ok", Answer: "1"}, {Answer: "2", Difficulty: 6}})
	require.ErrorAs(t, err, &ve)
	assert.Len(t, ve.Messages, 2)
	for _, msg := range ve.Messages {
		assert.True(t, strings.HasPrefix(msg, "problem #2: "), msg)
	}
}
