package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/at-ishikawa/osolnote/internal/admin"
)

type bulkCreateResponse struct {
	Created int `json:"created"`
}

func (s *Server) adminListProblems(c echo.Context) error {
	problems, err := s.admin.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, problems)
}

func (s *Server) adminCreateProblem(c echo.Context) error {
	in, err := s.readProblemForm(c)
	if err != nil {
		return err
	}
	p, err := s.admin.Create(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) adminUpdateProblem(c echo.Context) error {
	id, err := problemID(c)
	if err != nil {
		return err
	}
	in, err := s.readProblemForm(c)
	if err != nil {
		return err
	}
	if err := s.admin.Update(c.Request().Context(), id, in); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) adminDeleteProblem(c echo.Context) error {
	id, err := problemID(c)
	if err != nil {
		return err
	}
	if err := s.admin.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) adminBulkCreate(c echo.Context) error {
	var records []admin.Record
	if err := c.Bind(&records); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "request body must be a JSON array of problems")
	}
	created, err := s.admin.BulkCreate(c.Request().Context(), records)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, bulkCreateResponse{Created: created})
}

// readProblemForm reads the multipart problem form. Score and difficulty
// default to 0 when left blank.
func (s *Server) readProblemForm(c echo.Context) (admin.Input, error) {
	var in admin.Input
	in.Subject = c.FormValue("subject")
	in.Domain = c.FormValue("domain")
	in.Title = c.FormValue("title")
	in.Body = c.FormValue("body")
	in.Source = c.FormValue("source")
	in.Answer = c.FormValue("answer")
	in.Solution = c.FormValue("solution")

	var err error
	if in.Score, err = formInt(c, "score"); err != nil {
		return in, err
	}
	if in.Difficulty, err = formInt(c, "difficulty"); err != nil {
		return in, err
	}
	if in.Image1File, err = s.formImage(c, "image1"); err != nil {
		return in, err
	}
	if in.Image2File, err = s.formImage(c, "image2"); err != nil {
		return in, err
	}
	in.DeleteImage1 = formBool(c, "delete_image1")
	in.DeleteImage2 = formBool(c, "delete_image2")
	return in, nil
}

func formInt(c echo.Context, name string) (int, error) {
	value := strings.TrimSpace(c.FormValue(name))
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be a number", name))
	}
	return n, nil
}

func formBool(c echo.Context, name string) bool {
	switch strings.ToLower(strings.TrimSpace(c.FormValue(name))) {
	case "1", "true", "on", "yes":
		return true
	default:
		return false
	}
}

// formImage returns nil when no file was chosen for the field.
func (s *Server) formImage(c echo.Context, name string) (*admin.Image, error) {
	header, err := c.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid %s upload", name))
	}
	if header.Size == 0 {
		return nil, nil
	}
	if max := s.cfg.Storage.MaxUploadBytes; max > 0 && header.Size > max {
		return nil, echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s must be at most %d bytes", name, max))
	}

	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s upload: %w", name, err)
	}
	defer func() {
		_ = file.Close()
	}()
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read %s upload: %w", name, err)
	}
	return &admin.Image{Filename: header.Filename, Content: content}, nil
}
