package server

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

const userContextKey = "osolnote.user"

// identify resolves the caller from the session cookie or a bearer token.
// Invalid tokens are treated as anonymous.
func (s *Server) identify(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c.Request())
		if token == "" {
			if cookie, err := c.Cookie(s.cfg.Auth.CookieName); err == nil {
				token = cookie.Value
			}
		}
		if token != "" {
			userID, err := s.auth.Authenticate(token)
			if err != nil {
				s.logger.Debug("ignoring invalid token", slog.Any("error", err))
			} else {
				c.Set(userContextKey, userID)
			}
		}
		return next(c)
	}
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// currentUser returns the authenticated user id, or "" for anonymous callers.
func currentUser(c echo.Context) string {
	userID, _ := c.Get(userContextKey).(string)
	return userID
}

func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if currentUser(c) == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "login required")
		}
		return next(c)
	}
}

func (s *Server) requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !s.cfg.Auth.IsAdmin(currentUser(c)) {
			return echo.NewHTTPError(http.StatusForbidden, "administrator access required")
		}
		return next(c)
	}
}
