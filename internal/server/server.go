// Package server exposes the study-review HTTP JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/at-ishikawa/osolnote/internal/admin"
	"github.com/at-ishikawa/osolnote/internal/attachment"
	"github.com/at-ishikawa/osolnote/internal/auth"
	"github.com/at-ishikawa/osolnote/internal/config"
	"github.com/at-ishikawa/osolnote/internal/problem"
	"github.com/at-ishikawa/osolnote/internal/review"
	"github.com/at-ishikawa/osolnote/internal/validation"
)

// Reviewer grades answers and serves the review views.
type Reviewer interface {
	Problem(ctx context.Context, problemID int64) (*problem.Problem, error)
	Facets(ctx context.Context) (domains []string, sources []string, err error)
	Catalog(ctx context.Context, userID string, filter problem.Filter) ([]review.CatalogEntry, error)
	Grade(ctx context.Context, userID string, problemID int64, answer string) (*review.GradeResult, error)
	WrongProblems(ctx context.Context, userID string) ([]problem.Problem, error)
	ReviewProblems(ctx context.Context, userID string) ([]problem.Problem, error)
	ReviewSheet(ctx context.Context, userID string) ([]review.SheetEntry, error)
	SetBookmark(ctx context.Context, userID string, problemID int64, currentlyBookmarked bool) error
	SetBookmarked(ctx context.Context, userID string, problemID int64, bookmarked bool) error
}

// Authenticator logs users in and resolves identity tokens.
type Authenticator interface {
	Signup(ctx context.Context, username, password string) (*auth.Token, error)
	Login(ctx context.Context, username, password string) (*auth.Token, error)
	Authenticate(token string) (string, error)
}

// ProblemAdmin manages the catalog.
type ProblemAdmin interface {
	List(ctx context.Context) ([]problem.Problem, error)
	Create(ctx context.Context, in admin.Input) (*problem.Problem, error)
	Update(ctx context.Context, id int64, in admin.Input) error
	Delete(ctx context.Context, id int64) error
	BulkCreate(ctx context.Context, records []admin.Record) (int, error)
}

// SheetRenderer renders the printable review sheet.
type SheetRenderer interface {
	Markdown(ctx context.Context, userID string) ([]byte, error)
	WritePDF(ctx context.Context, userID string, outputDir string) (string, error)
}

// Server holds the HTTP handlers.
type Server struct {
	cfg      config.Config
	reviewer Reviewer
	auth     Authenticator
	admin    ProblemAdmin
	sheets   SheetRenderer
	limiter  *RateLimiter
	logger   *slog.Logger
}

// New creates a new Server.
func New(cfg config.Config, reviewer Reviewer, authenticator Authenticator, problemAdmin ProblemAdmin, sheets SheetRenderer) *Server {
	return &Server{
		cfg:      cfg,
		reviewer: reviewer,
		auth:     authenticator,
		admin:    problemAdmin,
		sheets:   sheets,
		limiter:  NewRateLimiter(cfg.Auth.LoginRateLimit.RequestsPerMinute, cfg.Auth.LoginRateLimit.Burst),
		logger:   slog.Default(),
	}
}

// Handler builds the echo router.
func (s *Server) Handler() (*echo.Echo, error) {
	validate, trans, err := validation.New("json")
	if err != nil {
		return nil, fmt.Errorf("validation.New() > %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = &requestValidator{validate: validate, trans: trans}
	e.HTTPErrorHandler = s.handleError

	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			}
			level := slog.LevelInfo
			if v.Error != nil {
				attrs = append(attrs, slog.Any("error", v.Error))
				if v.Status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
			}
			s.logger.LogAttrs(c.Request().Context(), level, "request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     s.cfg.Server.CORS.AllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
		AllowCredentials: true,
		MaxAge:           3600,
	}))
	e.Use(s.identify)

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	api := e.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/signup", s.signup, s.limiter.Middleware)
	authGroup.POST("/login", s.login, s.limiter.Middleware)
	authGroup.POST("/logout", s.logout)

	api.GET("/problems", s.listProblems)
	api.GET("/problems/facets", s.problemFacets)
	api.GET("/problems/:id", s.getProblem)

	user := api.Group("", requireUser)
	user.POST("/problems/:id/answer", s.answerProblem)
	user.POST("/problems/:id/bookmark/toggle", s.toggleBookmark)
	user.PUT("/problems/:id/bookmark", s.putBookmark)
	user.GET("/review/wrong", s.wrongProblems)
	user.GET("/review/bookmarks", s.bookmarkedProblems)
	user.GET("/review/sheet", s.reviewSheet)
	user.GET("/review/sheet.md", s.reviewSheetMarkdown)
	user.GET("/review/sheet.pdf", s.reviewSheetPDF)

	adminGroup := api.Group("/admin", requireUser, s.requireAdmin)
	adminGroup.GET("/problems", s.adminListProblems)
	adminGroup.POST("/problems", s.adminCreateProblem)
	adminGroup.PUT("/problems/:id", s.adminUpdateProblem)
	adminGroup.DELETE("/problems/:id", s.adminDeleteProblem)
	adminGroup.POST("/problems/bulk", s.adminBulkCreate)

	return e, nil
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := s.errorResponse(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			slog.String("method", c.Request().Method),
			slog.String("path", c.Path()),
			slog.Any("error", err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		s.logger.Error("failed to write error response", slog.Any("error", err))
	}
}

func (s *Server) errorResponse(err error) (int, errorResponse) {
	var httpErr *echo.HTTPError
	var validationErr *admin.ValidationError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Code, errorResponse{Error: fmt.Sprint(httpErr.Message)}
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, errorResponse{Error: "invalid problem", Details: validationErr.Messages}
	case errors.Is(err, attachment.ErrEmpty), errors.Is(err, attachment.ErrTooLarge):
		return http.StatusBadRequest, errorResponse{Error: err.Error()}
	case errors.Is(err, review.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, errorResponse{Error: "login required"}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, errorResponse{Error: auth.ErrInvalidCredentials.Error()}
	case errors.Is(err, review.ErrNotFound), errors.Is(err, problem.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "problem not found"}
	case errors.Is(err, review.ErrConflict):
		return http.StatusConflict, errorResponse{Error: "problem is already bookmarked"}
	case errors.Is(err, auth.ErrUsernameTaken):
		return http.StatusConflict, errorResponse{Error: auth.ErrUsernameTaken.Error()}
	case errors.Is(err, review.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, errorResponse{Error: "service temporarily unavailable, please retry"}
	default:
		return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
	}
}

type requestValidator struct {
	validate *validator.Validate
	trans    ut.Translator
}

func (v *requestValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, strings.Join(validation.Messages(err, v.trans), "; "))
	}
	return nil
}
