package access

import (
	"context"
	"errors"
	"slices"
	"strings"

	"rentcar/internal/app/middleware"
	domainuser "rentcar/internal/domain/user"
)

var (
	ErrUnauthenticated = errors.New("access: authentication required")
	ErrRoleNotAllowed  = errors.New("access: role not allowed")
	ErrUserNotVerified = errors.New("access: user not verified")
	ErrUserBlocked     = errors.New("access: user blocked")
	ErrNotBookingParty = errors.New("access: not a party of this booking")
	ErrNotCarOwner     = errors.New("access: car belongs to another owner")
)

// Actor is the authenticated caller on whose behalf a command or query runs.
type Actor struct {
	UserID string
	Role   domainuser.Role
}

func (a Actor) Authenticated() bool {
	return strings.TrimSpace(a.UserID) != ""
}

func (a Actor) IsAdmin() bool {
	return a.Role == domainuser.RoleAdmin
}

func (a Actor) Is(roles ...domainuser.Role) bool {
	return slices.Contains(roles, a.Role)
}

// Restricted is implemented by messages that only some roles may issue.
type Restricted interface {
	Principal() Actor
	AllowedRoles() []domainuser.Role
}

// RoleGuard is the authorizer used by the command and query chains. Messages that are not
// Restricted pass through; handlers still check ownership themselves.
type RoleGuard struct{}

func (RoleGuard) Authorize(_ context.Context, message any) error {
	r, ok := message.(Restricted)
	if !ok {
		return nil
	}
	actor := r.Principal()
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	allowed := r.AllowedRoles()
	if len(allowed) == 0 || actor.Is(allowed...) {
		return nil
	}
	return ErrRoleNotAllowed
}

var _ middleware.Authorizer = RoleGuard{}
