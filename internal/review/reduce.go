package review

import (
	"strings"
	"unicode"

	"github.com/at-ishikawa/osolnote/internal/attempt"
)

// IsCorrect compares a submission with the canonical answer. Surrounding
// whitespace is ignored; everything else, including case, must match.
func IsCorrect(canonical, submitted string) bool {
	return trimSpace(canonical) == trimSpace(submitted)
}

// trimSpace also strips the byte order mark that some editors prepend to
// pasted answers.
func trimSpace(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}

// LatestOutcomes maps each attempted problem to the correctness of its most
// recent attempt. attempts must be ordered newest first; the first record
// seen for a problem wins and older ones are ignored.
func LatestOutcomes(attempts []attempt.Attempt) map[int64]bool {
	outcomes := make(map[int64]bool, len(attempts))
	for _, a := range attempts {
		if _, seen := outcomes[a.ProblemID]; seen {
			continue
		}
		outcomes[a.ProblemID] = a.IsCorrect
	}
	return outcomes
}

// WrongProblemIDs returns the problems whose most recent attempt was
// incorrect, in the order their latest attempts appear. attempts must be
// ordered newest first.
func WrongProblemIDs(attempts []attempt.Attempt) []int64 {
	seen := make(map[int64]struct{}, len(attempts))
	var ids []int64
	for _, a := range attempts {
		if _, ok := seen[a.ProblemID]; ok {
			continue
		}
		seen[a.ProblemID] = struct{}{}
		if !a.IsCorrect {
			ids = append(ids, a.ProblemID)
		}
	}
	return ids
}
