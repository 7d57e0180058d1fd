// Package admin implements problem management for administrators: single
// edits with figure uploads and bulk imports.
package admin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/at-ishikawa/osolnote/internal/attachment"
	"github.com/at-ishikawa/osolnote/internal/problem"
	"github.com/at-ishikawa/osolnote/internal/validation"
)

// ValidationError lists why an input was rejected.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "invalid problem: " + strings.Join(e.Messages, "; ")
}

// Image is an uploaded figure.
type Image struct {
	Filename string
	Content  []byte
}

// Record is a problem as written in bulk import files and the bulk API.
type Record struct {
	Subject    string  `json:"subject" yaml:"subject,omitempty"`
	Domain     string  `json:"domain" yaml:"domain,omitempty"`
	Title      string  `json:"title" yaml:"title,omitempty"`
	Body       string  `json:"body" yaml:"body" validate:"required"`
	Source     string  `json:"source" yaml:"source,omitempty"`
	Answer     string  `json:"answer" yaml:"answer" validate:"required"`
	Score      int     `json:"score" yaml:"score" validate:"min=0"`
	Difficulty int     `json:"difficulty" yaml:"difficulty,omitempty" validate:"min=0,max=5"`
	Solution   string  `json:"solution" yaml:"solution,omitempty"`
	Image1     *string `json:"image1" yaml:"image1,omitempty" validate:"omitempty,url"`
	Image2     *string `json:"image2" yaml:"image2,omitempty" validate:"omitempty,url"`
}

// Input is a problem submitted through the admin form. New figures are
// uploaded; DeleteImage flags clear the stored figure and win over uploads.
type Input struct {
	Record
	Image1File   *Image
	Image2File   *Image
	DeleteImage1 bool
	DeleteImage2 bool
}

// Service manages the problem catalog.
type Service struct {
	problems problem.Repository
	uploader attachment.Uploader
	validate *validator.Validate
	trans    ut.Translator
}

// NewService creates a new Service.
func NewService(problems problem.Repository, uploader attachment.Uploader) (*Service, error) {
	validate, trans, err := validation.New("json")
	if err != nil {
		return nil, err
	}
	return &Service{
		problems: problems,
		uploader: uploader,
		validate: validate,
		trans:    trans,
	}, nil
}

// List returns every problem, answers included, newest first.
func (s *Service) List(ctx context.Context) ([]problem.Problem, error) {
	problems, err := s.problems.FindAll(ctx, problem.Filter{})
	if err != nil {
		return nil, fmt.Errorf("list problems: %w", err)
	}
	return problems, nil
}

// Create validates in, uploads its figures and stores the problem.
func (s *Service) Create(ctx context.Context, in Input) (*problem.Problem, error) {
	if err := s.check(in.Record); err != nil {
		return nil, err
	}

	p := in.Record.ToProblem()
	if in.Image1File != nil {
		url, err := s.upload(ctx, in.Image1File)
		if err != nil {
			return nil, err
		}
		p.Image1 = url
	}
	if in.Image2File != nil {
		url, err := s.upload(ctx, in.Image2File)
		if err != nil {
			return nil, err
		}
		p.Image2 = url
	}

	if err := s.problems.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create problem: %w", err)
	}
	return p, nil
}

// Update replaces the problem's fields. Figures are kept unless replaced or
// deleted.
func (s *Service) Update(ctx context.Context, id int64, in Input) error {
	if err := s.check(in.Record); err != nil {
		return err
	}
	if _, err := s.problems.FindByID(ctx, id); err != nil {
		return err
	}

	image1, err := s.imageUpdate(ctx, in.Image1File, in.DeleteImage1)
	if err != nil {
		return err
	}
	image2, err := s.imageUpdate(ctx, in.Image2File, in.DeleteImage2)
	if err != nil {
		return err
	}

	return s.problems.Update(ctx, id, problem.Update{
		Subject:    in.Subject,
		Domain:     in.Domain,
		Title:      in.Title,
		Body:       in.Body,
		Source:     in.Source,
		Answer:     in.Answer,
		Score:      in.Score,
		Difficulty: in.Difficulty,
		Solution:   optional(in.Solution),
		Image1:     image1,
		Image2:     image2,
	})
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.problems.FindByID(ctx, id); err != nil {
		return err
	}
	return s.problems.Delete(ctx, id)
}

// BulkCreate validates every record before storing any of them.
func (s *Service) BulkCreate(ctx context.Context, records []Record) (int, error) {
	if err := s.Validate(records); err != nil {
		return 0, err
	}

	problems := make([]*problem.Problem, 0, len(records))
	for _, r := range records {
		problems = append(problems, r.ToProblem())
	}
	if err := s.problems.BatchCreate(ctx, problems); err != nil {
		return 0, fmt.Errorf("bulk create problems: %w", err)
	}
	return len(problems), nil
}

// Validate checks all records and reports every failure, numbered from 1.
func (s *Service) Validate(records []Record) error {
	if len(records) == 0 {
		return &ValidationError{Messages: []string{"no problems to import"}}
	}

	var messages []string
	for i, r := range records {
		if err := s.check(r); err != nil {
			var ve *ValidationError
			if !errors.As(err, &ve) {
				return err
			}
			for _, msg := range ve.Messages {
				messages = append(messages, fmt.Sprintf("problem #%d: %s", i+1, msg))
			}
		}
	}
	if len(messages) > 0 {
		return &ValidationError{Messages: messages}
	}
	return nil
}

// DecodeYAML reads a YAML sequence of records.
func DecodeYAML(r io.Reader) ([]Record, error) {
	var records []Record
	if err := yaml.NewDecoder(r).Decode(&records); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("yaml.Decode > %w", err)
	}
	return records, nil
}

func (s *Service) check(r Record) error {
	if err := s.validate.Struct(r); err != nil {
		return &ValidationError{Messages: validation.Messages(err, s.trans)}
	}
	return nil
}

func (s *Service) upload(ctx context.Context, img *Image) (*string, error) {
	url, err := s.uploader.Upload(ctx, img.Filename, img.Content)
	if err != nil {
		if errors.Is(err, attachment.ErrTooLarge) || errors.Is(err, attachment.ErrEmpty) {
			return nil, &ValidationError{Messages: []string{fmt.Sprintf("%s: %v", img.Filename, err)}}
		}
		return nil, fmt.Errorf("upload %s: %w", img.Filename, err)
	}
	return &url, nil
}

func (s *Service) imageUpdate(ctx context.Context, file *Image, remove bool) (*problem.ImageUpdate, error) {
	if remove {
		return &problem.ImageUpdate{}, nil
	}
	if file == nil {
		return nil, nil
	}
	url, err := s.upload(ctx, file)
	if err != nil {
		return nil, err
	}
	return &problem.ImageUpdate{URL: url}, nil
}

// ToProblem converts r to a catalog problem. A blank solution is stored as NULL.
func (r Record) ToProblem() *problem.Problem {
	return &problem.Problem{
		Subject:    r.Subject,
		Domain:     r.Domain,
		Title:      r.Title,
		Body:       r.Body,
		Source:     r.Source,
		Answer:     r.Answer,
		Score:      r.Score,
		Difficulty: r.Difficulty,
		Solution:   optional(r.Solution),
		Image1:     r.Image1,
		Image2:     r.Image2,
	}
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
