package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/at-ishikawa/osolnote/internal/attempt"
)

func at(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
}

func TestCalculateStatistics(t *testing.T) {
	// Newest first, as the attempt store returns them.
	attempts := []attempt.Attempt{
		{ProblemID: 2, IsCorrect: true, CreatedAt: at(2025, time.February, 3)},
		{ProblemID: 1, IsCorrect: true, CreatedAt: at(2025, time.February, 2)},
		{ProblemID: 1, IsCorrect: false, CreatedAt: at(2025, time.February, 1)},
		{ProblemID: 1, IsCorrect: true, CreatedAt: at(2025, time.January, 20)},
		{ProblemID: 2, IsCorrect: false, CreatedAt: at(2025, time.January, 10)},
		{ProblemID: 3, IsCorrect: false, CreatedAt: at(2024, time.December, 31)},
	}

	tests := []struct {
		name  string
		year  int
		month int
		want  StatisticsResult
	}{
		{
			name: "all periods",
			want: StatisticsResult{
				Periods: []ReviewStatistics{
					{Period: "2025-02", AttemptsCount: 3, CorrectCount: 2, ProblemsUnique: 2, NewlySolvedCount: 1},
					{Period: "2025-01", AttemptsCount: 2, CorrectCount: 1, ProblemsUnique: 2, NewlySolvedCount: 1},
					{Period: "2024-12", AttemptsCount: 1, CorrectCount: 0, ProblemsUnique: 1, NewlySolvedCount: 0},
				},
				Aggregate: AggregateStatistics{AttemptsCount: 6, CorrectCount: 3, ProblemsUnique: 3, NewlySolvedCount: 2},
			},
		},
		{
			name:  "month filter keeps first solves from earlier months out",
			year:  2025,
			month: 2,
			want: StatisticsResult{
				Periods: []ReviewStatistics{
					{Period: "2025-02", AttemptsCount: 3, CorrectCount: 2, ProblemsUnique: 2, NewlySolvedCount: 1},
				},
				Aggregate: AggregateStatistics{AttemptsCount: 3, CorrectCount: 2, ProblemsUnique: 2, NewlySolvedCount: 1},
			},
		},
		{
			name: "year filter",
			year: 2024,
			want: StatisticsResult{
				Periods: []ReviewStatistics{
					{Period: "2024-12", AttemptsCount: 1, CorrectCount: 0, ProblemsUnique: 1, NewlySolvedCount: 0},
				},
				Aggregate: AggregateStatistics{AttemptsCount: 1, CorrectCount: 0, ProblemsUnique: 1, NewlySolvedCount: 0},
			},
		},
		{
			name: "no matching attempts",
			year: 2023,
			want: StatisticsResult{Periods: []ReviewStatistics{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CalculateStatistics(attempts, tt.year, tt.month)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReviewStatistics_Accuracy(t *testing.T) {
	assert.Equal(t, 0.0, ReviewStatistics{}.Accuracy())
	assert.Equal(t, 0.75, ReviewStatistics{AttemptsCount: 4, CorrectCount: 3}.Accuracy())
}
