package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"rentcar/internal/app/policies"
	domainuser "rentcar/internal/domain/user"
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 8 characters")
	ErrUserBlocked        = errors.New("auth: user blocked")
	ErrInvalidToken       = errors.New("auth: invalid or expired token")
	ErrRoleNotSelfService = errors.New("auth: role cannot be chosen at registration")
)

type Service struct {
	Users     domainuser.Repository
	Passwords policies.PasswordHasher
	Tokens    policies.TokenIssuer
	Logger    *slog.Logger
}

type RegisterParams struct {
	Email    string
	Phone    string
	Name     string
	Password string
	Role     string
}

type LoginParams struct {
	Email    string
	Password string
}

type AuthResult struct {
	User      *domainuser.User
	Token     string
	ExpiresAt time.Time
}

// Register creates a renter or owner account. Admin and fleet accounts are provisioned
// through moderation only.
func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}
	role := domainuser.RoleRenter
	if raw := strings.TrimSpace(params.Role); raw != "" {
		parsed, err := domainuser.ParseRole(raw)
		if err != nil {
			return nil, err
		}
		if parsed != domainuser.RoleRenter && parsed != domainuser.RoleOwner {
			return nil, ErrRoleNotSelfService
		}
		role = parsed
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, domainuser.ErrEmailRequired
	}
	if _, err := s.Users.ByEmail(ctx, email); err == nil {
		return nil, domainuser.ErrEmailAlreadyUsed
	} else if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Phone:        params.Phone,
		Name:         params.Name,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now(),
	})
	if err != nil {
		return nil, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, err
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	}
	return result, nil
}

// EnsureAdmin provisions the bootstrap admin account. An existing user with that email is
// left untouched; created reports whether a new account was written.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (user *domainuser.User, created bool, err error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, false, err
	}
	email = domainuser.NormalizeEmail(email)
	if email == "" {
		return nil, false, domainuser.ErrEmailRequired
	}
	existing, err := s.Users.ByEmail(ctx, email)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, domainuser.ErrNotFound) {
		return nil, false, err
	}
	if err := validatePassword(password); err != nil {
		return nil, false, err
	}
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return nil, false, err
	}
	now := time.Now()
	user, err = domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        email,
		Name:         "Administrator",
		PasswordHash: hash,
		Role:         domainuser.RoleAdmin,
		CreatedAt:    now,
	})
	if err != nil {
		return nil, false, err
	}
	if err := user.Verify("", now); err != nil {
		return nil, false, err
	}
	if err := s.Users.Save(ctx, user); err != nil {
		return nil, false, err
	}
	if s.Logger != nil {
		s.Logger.Info("admin account provisioned", "user_id", user.ID)
	}
	return user, true, nil
}

func (s *Service) Login(ctx context.Context, params LoginParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email := domainuser.NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrInvalidCredentials
	}
	user, err := s.Users.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, params.Password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, ErrUserBlocked
	}
	result, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return result, nil
}

// ResolveToken verifies the bearer token and loads the current user record, so role changes
// and blocks take effect before the token expires.
func (s *Service) ResolveToken(ctx context.Context, token string) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := s.Tokens.Verify(token)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.Users.ByID(ctx, domainuser.ID(claims.UserID))
	if err != nil {
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if user.Blocked {
		return nil, ErrUserBlocked
	}
	return user, nil
}

func (s *Service) issue(user *domainuser.User) (*AuthResult, error) {
	token, expiresAt, err := s.Tokens.Issue(string(user.ID), string(user.Role))
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < 8 {
		return ErrPasswordTooShort
	}
	return nil
}

func (s *Service) ensureDependencies() error {
	switch {
	case s.Users == nil:
		return errors.New("auth: user repository required")
	case s.Passwords == nil:
		return errors.New("auth: password hasher required")
	case s.Tokens == nil:
		return errors.New("auth: token issuer required")
	default:
		return nil
	}
}
