package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"geodash/internal/domain"
	"geodash/internal/observability/metrics"
)

// Credentials of the idempotent seed user, kept in lockstep with the
// frontend's demo login form.
const (
	SeedEmail    = "test@example.com"
	SeedPassword = "password123"
)

type userGateway interface {
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UpsertUser(ctx context.Context, email, passwordHash string) (*domain.User, bool, error)
}

type tokenIssuer interface {
	Issue(userID int64, email string, now time.Time) (string, error)
}

type AuthService struct {
	gateway userGateway
	tokens  tokenIssuer
}

func NewAuthService(gateway userGateway, tokens tokenIssuer) *AuthService {
	return &AuthService{gateway: gateway, tokens: tokens}
}

// Login authenticates email/password and returns a signed session token.
// Unknown user and wrong password collapse into the same
// domain.ErrInvalidCredentials so callers cannot tell which half failed.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	result := "success"
	defer func() {
		metrics.AuthLoginsTotal.WithLabelValues(result).Inc()
	}()

	user, err := s.gateway.FindUserByEmail(ctx, email)
	if err != nil {
		result = "failure"
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		result = "failure"
		return "", nil, domain.ErrInvalidCredentials
	}

	tok, err := s.tokens.Issue(user.ID, user.Email, time.Now())
	if err != nil {
		result = "failure"
		return "", nil, fmt.Errorf("issuing session token: %w", err)
	}
	return tok, user, nil
}

// Seed upserts the demo user. Safe to call repeatedly; a second run refreshes
// the password hash instead of creating another row.
func (s *AuthService) Seed(ctx context.Context) (*domain.User, bool, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(SeedPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}
	return s.gateway.UpsertUser(ctx, SeedEmail, string(hash))
}
