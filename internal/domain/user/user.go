package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleRenter Role = "renter"
	RoleFleet  Role = "fleet"
)

type User struct {
	ID           ID
	Email        string
	Phone        string
	Name         string
	PasswordHash string
	Role         Role
	Verified     bool
	Blocked      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type ListParams struct {
	Query    string
	Role     Role
	Verified *bool
	Limit    int
	Offset   int
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
	List(ctx context.Context, params ListParams) ([]*User, int, error)
}

type CreateParams struct {
	ID           ID
	Email        string
	Phone        string
	Name         string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	role := RoleRenter
	if params.Role != "" {
		parsed, err := ParseRole(string(params.Role))
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	return &User{
		ID:           ID(id),
		Email:        email,
		Phone:        strings.TrimSpace(params.Phone),
		Name:         name,
		PasswordHash: params.PasswordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// Verify marks the identity documents as checked. A non-empty promoteTo changes the role,
// e.g. a renter whose licence and RC were reviewed may start listing cars.
func (u *User) Verify(promoteTo Role, now time.Time) error {
	if promoteTo != "" {
		role, err := ParseRole(string(promoteTo))
		if err != nil {
			return err
		}
		u.Role = role
	}
	u.Verified = true
	u.touch(now)
	return nil
}

func (u *User) Unverify(now time.Time) {
	u.Verified = false
	u.touch(now)
}

func (u *User) SetBlocked(blocked bool, now time.Time) {
	u.Blocked = blocked
	u.touch(now)
}

func (u *User) Block(now time.Time)   { u.SetBlocked(true, now) }
func (u *User) Unblock(now time.Time) { u.SetBlocked(false, now) }

func (u *User) HasRole(role Role) bool {
	return u != nil && u.Role == role
}

// CanOwnCars reports whether the user may list cars.
func (u *User) CanOwnCars() bool {
	switch u.Role {
	case RoleOwner, RoleFleet, RoleAdmin:
		return true
	}
	return false
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

func ParseRole(raw string) (Role, error) {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleOwner:
		return RoleOwner, nil
	case RoleRenter:
		return RoleRenter, nil
	case RoleFleet:
		return RoleFleet, nil
	}
	return "", ErrInvalidRole
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
