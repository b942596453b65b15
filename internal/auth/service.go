package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cuongbtq/gigmarket/internal/domain"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// UserStore persists accounts
type UserStore interface {
	CreateUser(ctx context.Context, email, fullName, passwordHash string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
}

// Service handles sign up, sign in and sign out
type Service struct {
	users      UserStore
	tokens     *TokenService
	revocation RevocationList
	bcryptCost int
	logger     *slog.Logger
}

// NewService creates an auth Service
func NewService(users UserStore, tokens *TokenService, revocation RevocationList, bcryptCost int, logger *slog.Logger) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		users:      users,
		tokens:     tokens,
		revocation: revocation,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// SignUp registers an account and signs it in
func (s *Service) SignUp(ctx context.Context, email, fullName, password string) (*domain.User, *Token, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if email == "" || fullName == "" || len(password) < minPasswordLength {
		return nil, nil, domain.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, nil, domain.ErrInvalidInput
		}
		return nil, nil, domain.Unavailable(err)
	}

	user, err := s.users.CreateUser(ctx, email, fullName, string(hash))
	if err != nil {
		return nil, nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, domain.Unavailable(err)
	}

	s.logger.Info("User signed up", slog.String("user_id", user.ID))
	return user, token, nil
}

// SignIn checks credentials and issues a token
func (s *Service) SignIn(ctx context.Context, email, password string) (*domain.User, *Token, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, nil, domain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, nil, domain.Unavailable(err)
	}

	return user, token, nil
}

// SignOut revokes the token described by claims for the rest of its lifetime
func (s *Service) SignOut(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return domain.ErrNotAuthenticated
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.revocation.Revoke(ctx, claims.ID, ttl); err != nil {
		return domain.Unavailable(err)
	}

	s.logger.Info("User signed out", slog.String("user_id", claims.Subject))
	return nil
}

// Authenticate validates a bearer token and returns its claims
func (s *Service) Authenticate(ctx context.Context, tokenString string) (*Claims, error) {
	claims, err := s.tokens.Parse(tokenString)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocation.IsRevoked(ctx, claims.ID)
	if err != nil {
		// fail open: an unreachable revocation list must not lock everyone out
		s.logger.Error("Failed to check token revocation",
			slog.String("jti", claims.ID),
			slog.Any("error", err),
		)
	} else if revoked {
		return nil, ErrRevokedToken
	}

	return claims, nil
}

// Me returns the caller's account
func (s *Service) Me(ctx context.Context, caller *domain.Identity) (*domain.User, error) {
	if err := domain.RequireIdentity(caller); err != nil {
		return nil, err
	}
	return s.users.GetUser(ctx, caller.ID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
