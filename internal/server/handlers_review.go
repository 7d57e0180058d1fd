package server

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/at-ishikawa/osolnote/internal/problem"
)

type answerRequest struct {
	Answer string `json:"answer"`
}

type toggleBookmarkRequest struct {
	CurrentlyBookmarked bool `json:"currentlyBookmarked"`
}

type putBookmarkRequest struct {
	Bookmarked *bool `json:"bookmarked" validate:"required"`
}

type bookmarkResponse struct {
	ProblemID  int64 `json:"problemId"`
	Bookmarked bool  `json:"bookmarked"`
}

func (s *Server) listProblems(c echo.Context) error {
	filter := problem.Filter{
		Domain: c.QueryParam("domain"),
		Source: c.QueryParam("source"),
	}
	userID := currentUser(c)
	entries, err := s.reviewer.Catalog(c.Request().Context(), userID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newListItemViews(entries, userID != ""))
}

func (s *Server) problemFacets(c echo.Context) error {
	domains, sources, err := s.reviewer.Facets(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, facetsView{Domains: nonNil(domains), Sources: nonNil(sources)})
}

func (s *Server) getProblem(c echo.Context) error {
	id, err := problemID(c)
	if err != nil {
		return err
	}
	p, err := s.reviewer.Problem(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newProblemView(*p, false))
}

func (s *Server) answerProblem(c echo.Context) error {
	id, err := problemID(c)
	if err != nil {
		return err
	}
	var req answerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	result, err := s.reviewer.Grade(c.Request().Context(), currentUser(c), id, req.Answer)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, result)
}

func (s *Server) toggleBookmark(c echo.Context) error {
	id, err := problemID(c)
	if err != nil {
		return err
	}
	var req toggleBookmarkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := s.reviewer.SetBookmark(c.Request().Context(), currentUser(c), id, req.CurrentlyBookmarked); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookmarkResponse{ProblemID: id, Bookmarked: !req.CurrentlyBookmarked})
}

func (s *Server) putBookmark(c echo.Context) error {
	id, err := problemID(c)
	if err != nil {
		return err
	}
	var req putBookmarkRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := s.reviewer.SetBookmarked(c.Request().Context(), currentUser(c), id, *req.Bookmarked); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, bookmarkResponse{ProblemID: id, Bookmarked: *req.Bookmarked})
}

func (s *Server) wrongProblems(c echo.Context) error {
	problems, err := s.reviewer.WrongProblems(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newProblemViews(problems))
}

func (s *Server) bookmarkedProblems(c echo.Context) error {
	problems, err := s.reviewer.ReviewProblems(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newProblemViews(problems))
}

func (s *Server) reviewSheet(c echo.Context) error {
	entries, err := s.reviewer.ReviewSheet(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newSheetItemViews(entries))
}

func (s *Server) reviewSheetMarkdown(c echo.Context) error {
	markdown, err := s.sheets.Markdown(c.Request().Context(), currentUser(c))
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, "text/markdown; charset=utf-8", markdown)
}

func (s *Server) reviewSheetPDF(c echo.Context) error {
	dir, err := os.MkdirTemp("", "osolnote-sheet-")
	if err != nil {
		return fmt.Errorf("os.MkdirTemp() > %w", err)
	}
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	path, err := s.sheets.WritePDF(c.Request().Context(), currentUser(c), dir)
	if err != nil {
		return err
	}
	return c.Attachment(path, filepath.Base(path))
}

func problemID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid problem id")
	}
	return id, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
