package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/at-ishikawa/osolnote/internal/auth"
)

type credentialsRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

type sessionResponse struct {
	Username  string    `json:"username"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (s *Server) signup(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	token, err := s.auth.Signup(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, token)
	return c.JSON(http.StatusCreated, sessionResponse{Username: req.Username, Token: token.Value, ExpiresAt: token.ExpiresAt})
}

func (s *Server) login(c echo.Context) error {
	var req credentialsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	token, err := s.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	s.setSessionCookie(c, token)
	return c.JSON(http.StatusOK, sessionResponse{Username: req.Username, Token: token.Value, ExpiresAt: token.ExpiresAt})
}

func (s *Server) logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) setSessionCookie(c echo.Context, token *auth.Token) {
	c.SetCookie(&http.Cookie{
		Name:     s.cfg.Auth.CookieName,
		Value:    token.Value,
		Path:     "/",
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   s.cfg.Server.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	return c.Validate(req)
}
