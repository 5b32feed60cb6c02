package admin

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"rentcar/internal/app/access"
	"rentcar/internal/app/commands"
	"rentcar/internal/app/dto"
	handlersupport "rentcar/internal/app/handlers/support"
	"rentcar/internal/app/queries"
	"rentcar/internal/app/uow"
	domainuser "rentcar/internal/domain/user"
)

const (
	listUsersKey  = "admin.users.list"
	verifyUserKey = "admin.users.verify"
	blockUserKey  = "admin.users.block"
)

type ListUsersQuery struct {
	Actor    access.Actor `json:"-"`
	Query    string       `json:"query" validate:"max=200"`
	Role     string       `json:"role" validate:"omitempty,oneof=admin owner renter fleet"`
	Verified *bool        `json:"verified"`
	Limit    int          `json:"limit" validate:"gte=0,lte=200"`
	Offset   int          `json:"offset" validate:"gte=0"`
}

func (q ListUsersQuery) Key() string                     { return listUsersKey }
func (q ListUsersQuery) Principal() access.Actor         { return q.Actor }
func (q ListUsersQuery) AllowedRoles() []domainuser.Role { return adminOnly }

type ListUsersHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListUsersHandler) Handle(ctx context.Context, q ListUsersQuery) (dto.UserCollection, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.UserCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	users, total, err := unit.Users().List(execCtx, domainuser.ListParams{
		Query:    strings.TrimSpace(q.Query),
		Role:     domainuser.Role(q.Role),
		Verified: q.Verified,
		Limit:    limit,
		Offset:   q.Offset,
	})
	if err != nil {
		return dto.UserCollection{}, err
	}
	return dto.UserCollection{
		Items: dto.MapUsers(users),
		Page:  dto.Page{Total: total, Limit: limit, Offset: q.Offset},
	}, nil
}

// VerifyUserCommand marks a user's documents as reviewed. PromoteTo optionally changes the
// role at the same time, typically renter to owner.
type VerifyUserCommand struct {
	Actor     access.Actor `json:"-"`
	UserID    string       `json:"userId" validate:"required"`
	Verified  *bool        `json:"verified"`
	PromoteTo string       `json:"promoteTo" validate:"omitempty,oneof=admin owner renter fleet"`
}

func (c VerifyUserCommand) Key() string                     { return verifyUserKey }
func (c VerifyUserCommand) Principal() access.Actor         { return c.Actor }
func (c VerifyUserCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type BlockUserCommand struct {
	Actor   access.Actor `json:"-"`
	UserID  string       `json:"userId" validate:"required"`
	Blocked bool         `json:"blocked"`
}

func (c BlockUserCommand) Key() string                     { return blockUserKey }
func (c BlockUserCommand) Principal() access.Actor         { return c.Actor }
func (c BlockUserCommand) AllowedRoles() []domainuser.Role { return adminOnly }

type UserResult struct {
	Message string      `json:"message"`
	User    dto.UserDTO `json:"user"`
}

type VerifyUserHandler struct {
	Clock  func() time.Time
	Logger *slog.Logger
}

func (h *VerifyUserHandler) Handle(ctx context.Context, cmd VerifyUserCommand) (*UserResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	u, err := unit.Users().ByID(ctx, domainuser.ID(strings.TrimSpace(cmd.UserID)))
	if err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Clock)
	message := "User verified"
	if cmd.Verified != nil && !*cmd.Verified {
		u.Unverify(now)
		message = "User verification revoked"
	} else if err := u.Verify(domainuser.Role(cmd.PromoteTo), now); err != nil {
		return nil, err
	}
	if err := unit.Users().Save(ctx, u); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("user verification changed", "user_id", u.ID, "verified", u.Verified, "role", u.Role, "admin_id", cmd.Actor.UserID)
	}
	return &UserResult{Message: message, User: dto.MapUser(u)}, nil
}

type BlockUserHandler struct {
	Clock  func() time.Time
	Logger *slog.Logger
}

func (h *BlockUserHandler) Handle(ctx context.Context, cmd BlockUserCommand) (*UserResult, error) {
	unit, err := handlersupport.Unit(ctx)
	if err != nil {
		return nil, err
	}
	u, err := unit.Users().ByID(ctx, domainuser.ID(strings.TrimSpace(cmd.UserID)))
	if err != nil {
		return nil, err
	}
	now := handlersupport.Now(h.Clock)
	message := "User unblocked"
	if cmd.Blocked {
		u.Block(now)
		message = "User blocked"
	} else {
		u.Unblock(now)
	}
	if err := unit.Users().Save(ctx, u); err != nil {
		return nil, err
	}
	if h.Logger != nil {
		h.Logger.Info("user block changed", "user_id", u.ID, "blocked", u.Blocked, "admin_id", cmd.Actor.UserID)
	}
	return &UserResult{Message: message, User: dto.MapUser(u)}, nil
}

var _ queries.Handler[ListUsersQuery, dto.UserCollection] = (*ListUsersHandler)(nil)
var _ commands.Handler[VerifyUserCommand, *UserResult] = (*VerifyUserHandler)(nil)
var _ commands.Handler[BlockUserCommand, *UserResult] = (*BlockUserHandler)(nil)
