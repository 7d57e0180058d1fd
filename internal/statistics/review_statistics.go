package statistics

import (
	"fmt"
	"sort"

	"github.com/at-ishikawa/osolnote/internal/attempt"
)

// ReviewStatistics holds statistics for a time period
type ReviewStatistics struct {
	Period           string // "2025-01"
	AttemptsCount    int    // Total submissions
	CorrectCount     int    // Submissions graded correct
	ProblemsUnique   int    // Distinct problems attempted
	NewlySolvedCount int    // Problems answered correctly for the first time
}

// Accuracy returns the share of correct submissions, or 0 without attempts.
func (s ReviewStatistics) Accuracy() float64 {
	if s.AttemptsCount == 0 {
		return 0
	}
	return float64(s.CorrectCount) / float64(s.AttemptsCount)
}

// AggregateStatistics holds totals across all periods with global unique counts
type AggregateStatistics struct {
	AttemptsCount    int
	CorrectCount     int
	ProblemsUnique   int // Distinct problems attempted (deduplicated across periods)
	NewlySolvedCount int
}

// StatisticsResult holds both per-period and aggregate statistics
type StatisticsResult struct {
	Periods   []ReviewStatistics
	Aggregate AggregateStatistics
}

type periodData struct {
	attempts       int
	correct        int
	problemsUnique map[int64]struct{}
	newlySolved    int
}

// CalculateStatistics calculates monthly statistics from a user's attempts.
// It accepts optional year and month filters (0 means no filter).
// A problem is "newly solved" in the month of its first correct attempt,
// even when earlier wrong attempts fall outside the filter.
func CalculateStatistics(attempts []attempt.Attempt, year, month int) StatisticsResult {
	stats := make(map[string]*periodData)
	globalProblems := make(map[int64]struct{})
	solved := make(map[int64]struct{})
	var newlySolved int

	// Attempts are stored newest first, so iterate in reverse to see them in order.
	for i := len(attempts) - 1; i >= 0; i-- {
		a := attempts[i]
		firstSuccess := false
		if a.IsCorrect {
			if _, ok := solved[a.ProblemID]; !ok {
				solved[a.ProblemID] = struct{}{}
				firstSuccess = true
			}
		}

		if a.CreatedAt.IsZero() || !matchesFilter(a.CreatedAt.Year(), int(a.CreatedAt.Month()), year, month) {
			continue
		}

		period := fmt.Sprintf("%d-%02d", a.CreatedAt.Year(), int(a.CreatedAt.Month()))
		data := ensurePeriodExists(stats, period)
		data.attempts++
		data.problemsUnique[a.ProblemID] = struct{}{}
		globalProblems[a.ProblemID] = struct{}{}
		if a.IsCorrect {
			data.correct++
		}
		if firstSuccess {
			data.newlySolved++
			newlySolved++
		}
	}

	return buildResult(stats, globalProblems, newlySolved)
}

func ensurePeriodExists(stats map[string]*periodData, period string) *periodData {
	if stats[period] == nil {
		stats[period] = &periodData{
			problemsUnique: make(map[int64]struct{}),
		}
	}
	return stats[period]
}

func matchesFilter(logYear, logMonth, filterYear, filterMonth int) bool {
	if filterYear == 0 {
		return true
	}
	if logYear != filterYear {
		return false
	}
	if filterMonth == 0 {
		return true
	}
	return logMonth == filterMonth
}

func buildResult(stats map[string]*periodData, globalProblems map[int64]struct{}, newlySolved int) StatisticsResult {
	periods := make([]ReviewStatistics, 0, len(stats))

	var totalAttempts, totalCorrect int
	for period, data := range stats {
		periods = append(periods, ReviewStatistics{
			Period:           period,
			AttemptsCount:    data.attempts,
			CorrectCount:     data.correct,
			ProblemsUnique:   len(data.problemsUnique),
			NewlySolvedCount: data.newlySolved,
		})
		totalAttempts += data.attempts
		totalCorrect += data.correct
	}

	// Sort by period descending (newest first)
	sort.Slice(periods, func(i, j int) bool {
		return periods[i].Period > periods[j].Period
	})

	return StatisticsResult{
		Periods: periods,
		Aggregate: AggregateStatistics{
			AttemptsCount:    totalAttempts,
			CorrectCount:     totalCorrect,
			ProblemsUnique:   len(globalProblems),
			NewlySolvedCount: newlySolved,
		},
	}
}
