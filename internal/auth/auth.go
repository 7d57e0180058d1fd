// Package auth manages accounts and the signed identity tokens that carry a
// user id between requests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/at-ishikawa/osolnote/internal/user"
)

// Issuer is the iss claim of every token.
const Issuer = "osolnote"

var (
	// ErrInvalidCredentials covers both unknown users and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid identity token")
	ErrUsernameTaken      = errors.New("username already taken")
)

// Token is a signed identity token and the time it stops being accepted.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Service implements signup, login and token verification.
type Service struct {
	users  user.Repository
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
}

// NewService creates a new Service. secret signs tokens with HS256.
func NewService(users user.Repository, secret string, ttl time.Duration) *Service {
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
	}
}

// Register creates an account without logging it in.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.Create(ctx, &user.User{Username: username, PasswordHash: string(hash)}); err != nil {
		if errors.Is(err, user.ErrConflict) {
			return fmt.Errorf("register %s: %w", username, ErrUsernameTaken)
		}
		return fmt.Errorf("register %s: %w", username, err)
	}
	return nil
}

// Signup registers the account and logs it in.
func (s *Service) Signup(ctx context.Context, username, password string) (*Token, error) {
	if err := s.Register(ctx, username, password); err != nil {
		return nil, err
	}
	return s.Issue(strings.TrimSpace(username))
}

// Login checks the password and issues a token.
func (s *Service) Login(ctx context.Context, username, password string) (*Token, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login %s: %w", username, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.Issue(u.Username)
}

// Issue signs a token for userID.
func (s *Service) Issue(userID string) (*Token, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    Issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Token{Value: value, ExpiresAt: expiresAt}, nil
}

// Authenticate returns the user id carried by token. Tokens signed with
// another key or algorithm, issued by someone else, or expired are rejected.
func (s *Service) Authenticate(token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims,
		func(*jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
