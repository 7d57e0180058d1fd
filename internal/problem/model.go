package problem

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned when no problem has the requested id.
var ErrNotFound = errors.New("problem not found")

// Problem is a catalog entry. Answer, Solution, Image2 and Source are
// revealed to a student only after a correct submission.
type Problem struct {
	ID         int64     `db:"id" json:"id"`
	Subject    string    `db:"subject" json:"subject"`
	Domain     string    `db:"domain" json:"domain"`
	Title      string    `db:"title" json:"title"`
	Body       string    `db:"body" json:"body" validate:"required"`
	Source     string    `db:"source" json:"source"`
	Answer     string    `db:"answer" json:"answer" validate:"required"`
	Score      int       `db:"score" json:"score" validate:"min=0"`
	Difficulty int       `db:"difficulty" json:"difficulty" validate:"min=0,max=5"`
	Solution   *string   `db:"solution" json:"solution,omitempty"`
	Image1     *string   `db:"image1" json:"image1,omitempty"`
	Image2     *string   `db:"image2" json:"image2,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// Filter narrows FindAll. Empty fields match everything; set fields are
// compared after trimming surrounding whitespace.
type Filter struct {
	Domain string
	Source string
}

// Update replaces the editable columns of a problem. Image columns are left
// untouched unless their ImageUpdate is set; an ImageUpdate with a nil URL
// clears the column.
type Update struct {
	Subject    string
	Domain     string
	Title      string
	Body       string `validate:"required"`
	Source     string
	Answer     string `validate:"required"`
	Score      int    `validate:"min=0"`
	Difficulty int    `validate:"min=0,max=5"`
	Solution   *string
	Image1     *ImageUpdate
	Image2     *ImageUpdate
}

type ImageUpdate struct {
	URL *string
}

// Facets returns the distinct, trimmed, non-empty domains and sources of
// problems in lexical order, for building list filters.
func Facets(problems []Problem) (domains []string, sources []string) {
	return distinct(problems, func(p Problem) string { return p.Domain }),
		distinct(problems, func(p Problem) string { return p.Source })
}

func distinct(problems []Problem, field func(Problem) string) []string {
	seen := make(map[string]bool)
	var values []string
	for _, p := range problems {
		v := strings.TrimSpace(field(p))
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
