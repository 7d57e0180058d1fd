package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"

	"github.com/at-ishikawa/osolnote/internal/problem"
	"github.com/at-ishikawa/osolnote/internal/review"
)

// Grader grades answers and bookmarks problems for a user.
type Grader interface {
	Grade(ctx context.Context, userID string, problemID int64, answer string) (*review.GradeResult, error)
	SetBookmarked(ctx context.Context, userID string, problemID int64, bookmarked bool) error
}

// ProblemQuizCLI manages the interactive CLI session over a list of problems
type ProblemQuizCLI struct {
	*InteractiveQuizCLI
	grader   Grader
	userID   string
	problems []problem.Problem
	answered int
	correct  int
}

// NewProblemQuizCLI creates a new problem quiz reading answers from stdin
// and writing to stdout.
func NewProblemQuizCLI(grader Grader, userID string, problems []problem.Problem, stdin io.Reader, stdout io.Writer) *ProblemQuizCLI {
	return &ProblemQuizCLI{
		InteractiveQuizCLI: newInteractiveQuizCLI(stdin, stdout),
		grader:             grader,
		userID:             userID,
		problems:           problems,
	}
}

// ShuffleProblems shuffles the remaining problems
func (r *ProblemQuizCLI) ShuffleProblems() {
	rand.Shuffle(len(r.problems), func(i, j int) {
		r.problems[i], r.problems[j] = r.problems[j], r.problems[i]
	})
}

// GetProblemCount returns the number of remaining problems
func (r *ProblemQuizCLI) GetProblemCount() int {
	return len(r.problems)
}

// Score returns how many problems were answered and how many of them correctly.
func (r *ProblemQuizCLI) Score() (answered, correct int) {
	return r.answered, r.correct
}

func (r *ProblemQuizCLI) Session(ctx context.Context) error {
	if len(r.problems) == 0 {
		return r.finish()
	}
	current := r.problems[0]
	w := r.stdoutWriter

	domain := current.Domain
	if domain == "" {
		domain = "Other"
	}
	_, _ = r.bold.Fprintf(w, "#%d %s (%d points)\n", current.ID, domain, current.Score)
	_, _ = fmt.Fprintln(w, current.Body)
	if current.Image1 != nil {
		_, _ = fmt.Fprintf(w, "Figure: %s\n", *current.Image1)
	}
	_, _ = r.bold.Fprint(w, "Answer: ")

	userAnswer, err := r.readLine()
	if err != nil {
		if errors.Is(err, io.EOF) {
			_, _ = fmt.Fprintln(w)
			return r.finish()
		}
		return fmt.Errorf("error reading input: %w", err)
	}

	result, err := r.grader.Grade(ctx, r.userID, current.ID, userAnswer)
	if err != nil {
		return fmt.Errorf("grader.Grade(%d) > %w", current.ID, err)
	}
	r.answered++

	if result.IsCorrect {
		r.correct++
		_, _ = fmt.Fprint(w, "✅ ")
		_, _ = r.green.Fprintf(w, "It's correct. The answer is %s\n", r.italic.Sprint(*result.CorrectAnswer))
		if result.Solution != nil {
			_, _ = fmt.Fprintf(w, "   Solution: %s\n", *result.Solution)
		}
		if result.Source != nil {
			_, _ = fmt.Fprintf(w, "   Source: %s\n", *result.Source)
		}
	} else {
		_, _ = fmt.Fprint(w, "❌ ")
		_, _ = r.red.Fprintln(w, "It's wrong. Try it again later.")
		if err := r.askBookmark(ctx, current.ID); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintln(w)

	r.problems = r.problems[1:]
	return nil
}

func (r *ProblemQuizCLI) askBookmark(ctx context.Context, problemID int64) error {
	_, _ = fmt.Fprint(r.stdoutWriter, "Bookmark it for review? [y/N]: ")
	reply, err := r.readLine()
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error reading input: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(reply)) {
	case "y", "yes":
		if err := r.grader.SetBookmarked(ctx, r.userID, problemID, true); err != nil {
			return fmt.Errorf("grader.SetBookmarked(%d) > %w", problemID, err)
		}
		_, _ = fmt.Fprintln(r.stdoutWriter, "Bookmarked.")
	}
	return nil
}

func (r *ProblemQuizCLI) finish() error {
	if r.answered == 0 {
		_, _ = fmt.Fprintln(r.stdoutWriter, "No more problems to practice!")
	} else {
		_, _ = fmt.Fprintf(r.stdoutWriter, "You answered %d of %d correctly.\n", r.correct, r.answered)
	}
	return errEnd
}
