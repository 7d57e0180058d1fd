// Package review grades answer submissions and derives each user's review
// state from the attempt log and bookmarks. The state is recomputed on every
// read; nothing here is cached.
package review

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/at-ishikawa/osolnote/internal/attempt"
	"github.com/at-ishikawa/osolnote/internal/bookmark"
	"github.com/at-ishikawa/osolnote/internal/problem"
)

// GradeResult is the outcome of a submission. The reveal fields are set only
// when the answer was correct.
type GradeResult struct {
	ProblemID     int64   `json:"problemId"`
	IsCorrect     bool    `json:"isCorrect"`
	Solution      *string `json:"solution,omitempty"`
	SolutionImage *string `json:"solutionImage,omitempty"`
	CorrectAnswer *string `json:"correctAnswer,omitempty"`
	Source        *string `json:"source,omitempty"`

	Attempt attempt.Attempt `json:"-"`
}

// SheetEntry is a wrong problem together with its bookmark flag.
type SheetEntry struct {
	Problem    problem.Problem
	Bookmarked bool
}

// CatalogEntry is a catalog problem annotated for one user.
type CatalogEntry struct {
	Problem    problem.Problem
	Bookmarked bool
	// LastCorrect is nil when the user never attempted the problem.
	LastCorrect *bool
}

// Engine implements grading and review-state derivation.
type Engine struct {
	problems  problem.Repository
	attempts  attempt.Repository
	bookmarks bookmark.Repository
	logger    *slog.Logger
}

// NewEngine creates a new Engine.
func NewEngine(problems problem.Repository, attempts attempt.Repository, bookmarks bookmark.Repository) *Engine {
	return &Engine{
		problems:  problems,
		attempts:  attempts,
		bookmarks: bookmarks,
		logger:    slog.Default(),
	}
}

// Grade checks answer against the problem's canonical answer and records the
// attempt. A failure to record the attempt is logged and does not fail the
// grading.
func (e *Engine) Grade(ctx context.Context, userID string, problemID int64, answer string) (*GradeResult, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	p, err := e.problems.FindByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, problem.ErrNotFound) {
			return nil, fmt.Errorf("grade problem %d: %w: %w", problemID, ErrNotFound, err)
		}
		return nil, storeUnavailable(fmt.Sprintf("grade problem %d", problemID), err)
	}

	correct := IsCorrect(p.Answer, answer)
	record := attempt.Attempt{
		UserID:     userID,
		ProblemID:  problemID,
		UserAnswer: answer,
		IsCorrect:  correct,
	}
	if err := e.attempts.Append(ctx, &record); err != nil {
		e.logger.Error("failed to record attempt",
			slog.String("user_id", userID),
			slog.Int64("problem_id", problemID),
			slog.Bool("is_correct", correct),
			slog.Any("error", err),
		)
	}

	result := &GradeResult{
		ProblemID: problemID,
		IsCorrect: correct,
		Attempt:   record,
	}
	if correct {
		canonical := p.Answer
		source := p.Source
		result.Solution = p.Solution
		result.SolutionImage = p.Image2
		result.CorrectAnswer = &canonical
		result.Source = &source
	}
	return result, nil
}

// Problem returns one catalog problem.
func (e *Engine) Problem(ctx context.Context, problemID int64) (*problem.Problem, error) {
	p, err := e.problems.FindByID(ctx, problemID)
	if err != nil {
		if errors.Is(err, problem.ErrNotFound) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, storeUnavailable(fmt.Sprintf("load problem %d", problemID), err)
	}
	return p, nil
}

// Facets returns the distinct domains and sources of the whole catalog.
func (e *Engine) Facets(ctx context.Context) (domains []string, sources []string, err error) {
	problems, err := e.problems.FindAll(ctx, problem.Filter{})
	if err != nil {
		return nil, nil, storeUnavailable("load problems", err)
	}
	domains, sources = problem.Facets(problems)
	return domains, sources, nil
}

// WrongProblems returns the problems whose most recent attempt by userID was
// incorrect, newest problem first. Problems deleted from the catalog since
// they were attempted are left out.
func (e *Engine) WrongProblems(ctx context.Context, userID string) ([]problem.Problem, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	attempts, err := e.attempts.FindByUser(ctx, userID)
	if err != nil {
		return nil, storeUnavailable("load attempts", err)
	}
	ids := WrongProblemIDs(attempts)
	if len(ids) == 0 {
		return []problem.Problem{}, nil
	}

	problems, err := e.problems.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeUnavailable("load wrong problems", err)
	}
	return problems, nil
}

// ReviewProblems returns the problems userID bookmarked, newest problem first.
func (e *Engine) ReviewProblems(ctx context.Context, userID string) ([]problem.Problem, error) {
	ids, err := e.BookmarkedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []problem.Problem{}, nil
	}

	problems, err := e.problems.FindByIDs(ctx, ids)
	if err != nil {
		return nil, storeUnavailable("load bookmarked problems", err)
	}
	return problems, nil
}

// BookmarkedIDs returns the ids of the problems userID bookmarked.
func (e *Engine) BookmarkedIDs(ctx context.Context, userID string) ([]int64, error) {
	if userID == "" {
		return nil, ErrUnauthenticated
	}

	ids, err := e.bookmarks.FindProblemIDsByUser(ctx, userID)
	if err != nil {
		return nil, storeUnavailable("load bookmarks", err)
	}
	return ids, nil
}

// ReviewSheet returns the wrong problems of userID, each flagged with
// whether it is bookmarked.
func (e *Engine) ReviewSheet(ctx context.Context, userID string) ([]SheetEntry, error) {
	problems, err := e.WrongProblems(ctx, userID)
	if err != nil {
		return nil, err
	}
	bookmarked, err := e.bookmarkSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]SheetEntry, 0, len(problems))
	for _, p := range problems {
		_, ok := bookmarked[p.ID]
		entries = append(entries, SheetEntry{Problem: p, Bookmarked: ok})
	}
	return entries, nil
}

// Catalog lists the problems matching filter. When userID is set, entries
// carry the user's bookmark flag and latest outcome.
func (e *Engine) Catalog(ctx context.Context, userID string, filter problem.Filter) ([]CatalogEntry, error) {
	problems, err := e.problems.FindAll(ctx, filter)
	if err != nil {
		return nil, storeUnavailable("load problems", err)
	}

	entries := make([]CatalogEntry, 0, len(problems))
	if userID == "" {
		for _, p := range problems {
			entries = append(entries, CatalogEntry{Problem: p})
		}
		return entries, nil
	}

	bookmarked, err := e.bookmarkSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	attempts, err := e.attempts.FindByUser(ctx, userID)
	if err != nil {
		return nil, storeUnavailable("load attempts", err)
	}
	outcomes := LatestOutcomes(attempts)

	for _, p := range problems {
		entry := CatalogEntry{Problem: p}
		_, entry.Bookmarked = bookmarked[p.ID]
		if correct, ok := outcomes[p.ID]; ok {
			entry.LastCorrect = &correct
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// SetBookmark flips the bookmark of problemID from the state the caller
// believes it is in: currentlyBookmarked removes it, otherwise it is added.
// Adding an existing bookmark fails with ErrConflict.
func (e *Engine) SetBookmark(ctx context.Context, userID string, problemID int64, currentlyBookmarked bool) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	if currentlyBookmarked {
		return e.removeBookmark(ctx, userID, problemID)
	}
	if err := e.bookmarks.Insert(ctx, userID, problemID); err != nil {
		if errors.Is(err, bookmark.ErrConflict) {
			return fmt.Errorf("bookmark problem %d: %w: %w", problemID, ErrConflict, err)
		}
		return storeUnavailable(fmt.Sprintf("bookmark problem %d", problemID), err)
	}
	return nil
}

// SetBookmarked makes the bookmark of problemID match bookmarked regardless
// of its current state.
func (e *Engine) SetBookmarked(ctx context.Context, userID string, problemID int64, bookmarked bool) error {
	if userID == "" {
		return ErrUnauthenticated
	}

	if !bookmarked {
		return e.removeBookmark(ctx, userID, problemID)
	}
	if err := e.bookmarks.Insert(ctx, userID, problemID); err != nil && !errors.Is(err, bookmark.ErrConflict) {
		return storeUnavailable(fmt.Sprintf("bookmark problem %d", problemID), err)
	}
	return nil
}

func (e *Engine) removeBookmark(ctx context.Context, userID string, problemID int64) error {
	if err := e.bookmarks.Delete(ctx, userID, problemID); err != nil {
		return storeUnavailable(fmt.Sprintf("remove bookmark of problem %d", problemID), err)
	}
	return nil
}

func (e *Engine) bookmarkSet(ctx context.Context, userID string) (map[int64]struct{}, error) {
	ids, err := e.BookmarkedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
