package ginserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"rentcar/internal/app/dto"
	authsvc "rentcar/internal/app/services/auth"
)

type AuthHTTP interface {
	Register(c *gin.Context)
	Login(c *gin.Context)
	Me(c *gin.Context)
}

// AuthService is the part of the auth service the HTTP layer uses.
type AuthService interface {
	Register(ctx context.Context, params authsvc.RegisterParams) (*authsvc.AuthResult, error)
	Login(ctx context.Context, params authsvc.LoginParams) (*authsvc.AuthResult, error)
}

type AuthHandler struct {
	Service AuthService
	Logger  *slog.Logger
}

type registerRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	result, err := h.Service.Register(c.Request.Context(), authsvc.RegisterParams{
		Email:    req.Email,
		Phone:    req.Phone,
		Name:     req.Name,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusCreated, "Registered", authPayload(result))
}

func (h AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	result, err := h.Service.Login(c.Request.Context(), authsvc.LoginParams{
		Email:    strings.TrimSpace(req.Email),
		Password: req.Password,
	})
	if err != nil {
		fail(c, h.Logger, err)
		return
	}
	respond(c, http.StatusOK, "Logged in", authPayload(result))
}

func (h AuthHandler) Me(c *gin.Context) {
	user, ok := requireUser(c, h.Logger)
	if !ok {
		return
	}
	respond(c, http.StatusOK, "", gin.H{"user": dto.MapUser(user)})
}

func authPayload(r *authsvc.AuthResult) gin.H {
	return gin.H{
		"token":     r.Token,
		"expiresAt": r.ExpiresAt,
		"user":      dto.MapUser(r.User),
	}
}

var _ AuthHTTP = AuthHandler{}
