// Package datasync provides import/export orchestration between YAML problem files and the database.
package datasync

import (
	"context"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/osolnote/internal/admin"
	"github.com/at-ishikawa/osolnote/internal/problem"
)

// ImportResult tracks counts for each import operation.
type ImportResult struct {
	ProblemsNew     int
	ProblemsSkipped int
	ProblemsUpdated int
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	DryRun         bool
	UpdateExisting bool
}

// Validator rejects records that cannot be stored.
type Validator interface {
	Validate(records []admin.Record) error
}

// Importer reads YAML problem records and writes them to the DB.
// A record matches a stored problem when both have the same body and
// source, ignoring surrounding whitespace.
type Importer struct {
	problems  problem.Repository
	validator Validator
	writer    io.Writer
}

// NewImporter creates a new Importer.
func NewImporter(problems problem.Repository, validator Validator, writer io.Writer) *Importer {
	return &Importer{
		problems:  problems,
		validator: validator,
		writer:    writer,
	}
}

// ImportProblems validates all records, then creates the new ones in one
// batch. Matching problems are skipped, or overwritten with UpdateExisting.
func (imp *Importer) ImportProblems(ctx context.Context, records []admin.Record, opts ImportOptions) (*ImportResult, error) {
	if err := imp.validator.Validate(records); err != nil {
		return nil, err
	}

	existing, err := imp.problems.FindAll(ctx, problem.Filter{})
	if err != nil {
		return nil, fmt.Errorf("FindAll() > %w", err)
	}
	known := make(map[string]int64, len(existing))
	for _, p := range existing {
		known[matchKey(p.Body, p.Source)] = p.ID
	}

	var result ImportResult
	var created []*problem.Problem
	seen := make(map[string]struct{}, len(records))
	for _, r := range records {
		key := matchKey(r.Body, r.Source)
		if _, ok := seen[key]; ok {
			fmt.Fprintf(imp.writer, "  [SKIP]  %q (duplicated in file)\n", summary(r.Body))
			result.ProblemsSkipped++
			continue
		}
		seen[key] = struct{}{}

		id, ok := known[key]
		switch {
		case !ok:
			created = append(created, r.ToProblem())
			fmt.Fprintf(imp.writer, "  [NEW]  %q\n", summary(r.Body))
			result.ProblemsNew++
		case !opts.UpdateExisting:
			fmt.Fprintf(imp.writer, "  [SKIP]  #%d %q\n", id, summary(r.Body))
			result.ProblemsSkipped++
		default:
			if !opts.DryRun {
				if err := imp.problems.Update(ctx, id, toUpdate(r)); err != nil {
					return nil, fmt.Errorf("Update(%d) > %w", id, err)
				}
			}
			fmt.Fprintf(imp.writer, "  [UPDATE]  #%d %q\n", id, summary(r.Body))
			result.ProblemsUpdated++
		}
	}

	if !opts.DryRun && len(created) > 0 {
		if err := imp.problems.BatchCreate(ctx, created); err != nil {
			return nil, fmt.Errorf("BatchCreate() > %w", err)
		}
	}
	return &result, nil
}

// ImportYAML decodes records from r and imports them.
func (imp *Importer) ImportYAML(ctx context.Context, r io.Reader, opts ImportOptions) (*ImportResult, error) {
	records, err := admin.DecodeYAML(r)
	if err != nil {
		return nil, err
	}
	return imp.ImportProblems(ctx, records, opts)
}

func toUpdate(r admin.Record) problem.Update {
	p := r.ToProblem()
	return problem.Update{
		Subject:    p.Subject,
		Domain:     p.Domain,
		Title:      p.Title,
		Body:       p.Body,
		Source:     p.Source,
		Answer:     p.Answer,
		Score:      p.Score,
		Difficulty: p.Difficulty,
		Solution:   p.Solution,
		Image1:     &problem.ImageUpdate{URL: p.Image1},
		Image2:     &problem.ImageUpdate{URL: p.Image2},
	}
}

func matchKey(body, source string) string {
	return strings.TrimSpace(body) + "\x00" + strings.TrimSpace(source)
}

// summary returns the first line of body, shortened for log output.
func summary(body string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(body), "\n")
	if utf8.RuneCountInString(line) <= 40 {
		return line
	}
	return string([]rune(line)[:40]) + "..."
}

// Exporter reads the DB and writes problem records.
type Exporter struct {
	problems problem.Repository
}

// NewExporter creates a new Exporter.
func NewExporter(problems problem.Repository) *Exporter {
	return &Exporter{problems: problems}
}

// Export returns every problem as a record, oldest first, so importing the
// result into an empty catalog lists the problems in the same order.
func (e *Exporter) Export(ctx context.Context) ([]admin.Record, error) {
	problems, err := e.problems.FindAll(ctx, problem.Filter{})
	if err != nil {
		return nil, fmt.Errorf("FindAll() > %w", err)
	}

	records := make([]admin.Record, 0, len(problems))
	for i := len(problems) - 1; i >= 0; i-- {
		records = append(records, fromProblem(problems[i]))
	}
	return records, nil
}

// ExportYAML writes every problem to w as a YAML sequence and returns how
// many were written.
func (e *Exporter) ExportYAML(ctx context.Context, w io.Writer) (int, error) {
	records, err := e.Export(ctx)
	if err != nil {
		return 0, err
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(records); err != nil {
		return 0, fmt.Errorf("yaml.Encode > %w", err)
	}
	if err := encoder.Close(); err != nil {
		return 0, fmt.Errorf("yaml.Encoder.Close > %w", err)
	}
	return len(records), nil
}

func fromProblem(p problem.Problem) admin.Record {
	r := admin.Record{
		Subject:    p.Subject,
		Domain:     p.Domain,
		Title:      p.Title,
		Body:       p.Body,
		Source:     p.Source,
		Answer:     p.Answer,
		Score:      p.Score,
		Difficulty: p.Difficulty,
		Image1:     p.Image1,
		Image2:     p.Image2,
	}
	if p.Solution != nil {
		r.Solution = *p.Solution
	}
	return r
}
