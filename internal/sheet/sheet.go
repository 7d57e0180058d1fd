// Package sheet builds the printable review sheet of a user's bookmarked
// problems.
package sheet

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/at-ishikawa/osolnote/internal/assets"
	"github.com/at-ishikawa/osolnote/internal/pdf"
	"github.com/at-ishikawa/osolnote/internal/problem"
)

// ProblemSource returns the problems a user marked for review, newest first.
type ProblemSource interface {
	ReviewProblems(ctx context.Context, userID string) ([]problem.Problem, error)
}

// Generator renders review sheets.
type Generator struct {
	source       ProblemSource
	templatePath string
	now          func() time.Time
}

// NewGenerator creates a new Generator. An empty templatePath uses the
// embedded template.
func NewGenerator(source ProblemSource, templatePath string) *Generator {
	return &Generator{
		source:       source,
		templatePath: templatePath,
		now:          time.Now,
	}
}

// Markdown renders the sheet of userID.
func (g *Generator) Markdown(ctx context.Context, userID string) ([]byte, error) {
	problems, err := g.source.ReviewProblems(ctx, userID)
	if err != nil {
		return nil, err
	}

	data := assets.ReviewSheet{
		Username: userID,
		Date:     g.now(),
		Problems: make([]assets.ReviewSheetProblem, 0, len(problems)),
	}
	for i, p := range problems {
		entry := assets.ReviewSheetProblem{
			Number: i + 1,
			Domain: p.Domain,
			Score:  p.Score,
			Body:   p.Body,
		}
		if p.Image1 != nil {
			entry.Image = *p.Image1
		}
		data.Problems = append(data.Problems, entry)
	}

	var buf bytes.Buffer
	if err := assets.WriteReviewSheet(&buf, g.templatePath, data); err != nil {
		return nil, fmt.Errorf("assets.WriteReviewSheet() > %w", err)
	}
	return buf.Bytes(), nil
}

// WritePDF writes the Markdown sheet of userID into outputDir, converts it
// to PDF next to it and returns the PDF path.
func (g *Generator) WritePDF(ctx context.Context, userID string, outputDir string) (string, error) {
	markdown, err := g.Markdown(ctx, userID)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("os.MkdirAll(%s) > %w", outputDir, err)
	}
	markdownPath := filepath.Join(outputDir, g.fileName(userID)+".md")
	if err := os.WriteFile(markdownPath, markdown, 0644); err != nil {
		return "", fmt.Errorf("os.WriteFile(%s) > %w", markdownPath, err)
	}

	pdfPath, err := pdf.ConvertMarkdownToPDF(markdownPath)
	if err != nil {
		return "", fmt.Errorf("pdf.ConvertMarkdownToPDF(%s) > %w", markdownPath, err)
	}
	return pdfPath, nil
}

var unsafeFileNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func (g *Generator) fileName(userID string) string {
	return fmt.Sprintf("%s-review-%s", unsafeFileNameChars.ReplaceAllString(userID, "_"), g.now().Format("20060102"))
}
