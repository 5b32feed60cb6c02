package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcar/internal/app/access"
	"rentcar/internal/app/services/auth"
	domainuser "rentcar/internal/domain/user"
)

const principalContextKey = "rentcar.principal"

// TokenResolver turns a bearer token into the current user record.
type TokenResolver interface {
	ResolveToken(ctx context.Context, token string) (*domainuser.User, error)
}

type AuthMiddleware struct {
	Service TokenResolver
	Logger  *slog.Logger
}

// Handle resolves the bearer token when one is present. Anonymous requests pass through;
// protected commands reject them in the authorization middleware of the bus.
func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	user, err := m.Service.ResolveToken(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			fail(c, m.Logger, err)
			return
		}
		if m.Logger != nil {
			m.Logger.Debug("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Set(principalContextKey, user)
	c.Set("user_id", string(user.ID))
	c.Next()
}

func currentUser(c *gin.Context) (*domainuser.User, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return nil, false
	}
	u, ok := val.(*domainuser.User)
	return u, ok && u != nil
}

// actorFrom returns the caller, or the zero Actor for anonymous requests.
func actorFrom(c *gin.Context) access.Actor {
	u, ok := currentUser(c)
	if !ok {
		return access.Actor{}
	}
	return access.Actor{UserID: string(u.ID), Role: u.Role}
}

func requireUser(c *gin.Context, logger *slog.Logger) (*domainuser.User, bool) {
	u, ok := currentUser(c)
	if !ok {
		fail(c, logger, access.ErrUnauthenticated)
		return nil, false
	}
	return u, true
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
