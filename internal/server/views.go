package server

import (
	"time"

	"github.com/at-ishikawa/osolnote/internal/problem"
	"github.com/at-ishikawa/osolnote/internal/review"
)

// problemView is a problem as shown to students. The answer, solution and
// solution figure are never included.
type problemView struct {
	ID         int64     `json:"id"`
	Subject    string    `json:"subject"`
	Domain     string    `json:"domain"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Source     *string   `json:"source,omitempty"`
	Score      int       `json:"score"`
	Difficulty int       `json:"difficulty"`
	Image1     *string   `json:"image1,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

type listItemView struct {
	problemView
	Bookmarked  *bool `json:"bookmarked,omitempty"`
	LastCorrect *bool `json:"lastCorrect,omitempty"`
}

type sheetItemView struct {
	problemView
	Bookmarked bool `json:"bookmarked"`
}

type facetsView struct {
	Domains []string `json:"domains"`
	Sources []string `json:"sources"`
}

// newProblemView hides the source unless withSource is set; listings show it
// while the detail page keeps it until the problem is solved.
func newProblemView(p problem.Problem, withSource bool) problemView {
	v := problemView{
		ID:         p.ID,
		Subject:    p.Subject,
		Domain:     p.Domain,
		Title:      p.Title,
		Body:       p.Body,
		Score:      p.Score,
		Difficulty: p.Difficulty,
		Image1:     p.Image1,
		CreatedAt:  p.CreatedAt,
	}
	if withSource && p.Source != "" {
		source := p.Source
		v.Source = &source
	}
	return v
}

func newProblemViews(problems []problem.Problem) []problemView {
	views := make([]problemView, 0, len(problems))
	for _, p := range problems {
		views = append(views, newProblemView(p, true))
	}
	return views
}

func newListItemViews(entries []review.CatalogEntry, annotated bool) []listItemView {
	views := make([]listItemView, 0, len(entries))
	for _, entry := range entries {
		item := listItemView{problemView: newProblemView(entry.Problem, true)}
		if annotated {
			bookmarked := entry.Bookmarked
			item.Bookmarked = &bookmarked
			item.LastCorrect = entry.LastCorrect
		}
		views = append(views, item)
	}
	return views
}

func newSheetItemViews(entries []review.SheetEntry) []sheetItemView {
	views := make([]sheetItemView, 0, len(entries))
	for _, entry := range entries {
		views = append(views, sheetItemView{
			problemView: newProblemView(entry.Problem, true),
			Bookmarked:  entry.Bookmarked,
		})
	}
	return views
}
