package assets

import (
	_ "embed"
	"fmt"
	"io"
	"time"
)

const reviewSheetTemplateName = "review-sheet.md.go.tmpl"

//go:embed templates/review-sheet.md.go.tmpl
var fallbackReviewSheetTemplate string

// ReviewSheet is the data of the printable review sheet template.
type ReviewSheet struct {
	Username string
	Date     time.Time
	Problems []ReviewSheetProblem
}

// ReviewSheetProblem is one numbered problem on the sheet. Answers and
// solutions are never part of it.
type ReviewSheetProblem struct {
	Number int
	Domain string
	Score  int
	Body   string
	Image  string
}

// WriteReviewSheet renders data as Markdown using the template at
// templatePath, or the embedded one when it is empty or unreadable.
func WriteReviewSheet(output io.Writer, templatePath string, data ReviewSheet) error {
	tmpl, err := parseTemplateWithFallback(templatePath, reviewSheetTemplateName, fallbackReviewSheetTemplate)
	if err != nil {
		return fmt.Errorf("parseTemplateWithFallback() > %w", err)
	}
	if err := tmpl.Execute(output, data); err != nil {
		return fmt.Errorf("tmpl.Execute() > %w", err)
	}
	return nil
}
