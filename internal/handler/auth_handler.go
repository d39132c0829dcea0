package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/eaglebank/ge-api/internal/cqrs"
	"github.com/eaglebank/ge-api/internal/middleware"
	"github.com/eaglebank/ge-api/internal/models"
	"github.com/gin-gonic/gin"
)

// AuthCommander defines the write-side operations used by AuthHandler.
type AuthCommander interface {
	Register(context.Context, cqrs.RegisterCommand) (models.AuthView, error)
}

// AuthQuerier defines the read-side operations used by AuthHandler.
type AuthQuerier interface {
	Login(context.Context, cqrs.LoginCommand) (models.AuthView, error)
	RefreshToken(context.Context, cqrs.RefreshTokenCommand) (models.TokenPair, error)
}

type AuthHandler struct {
	commands AuthCommander
	queries  AuthQuerier
}

type RegisterRequest struct {
	Nombres   string `json:"nombres" validate:"required,min=2"`
	Apellidos string `json:"apellidos" validate:"required,min=2"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,strongpassword"`
	Alias     string `json:"alias" validate:"omitempty,max=50"`
}

func (r *RegisterRequest) normalize() {
	r.Nombres = strings.TrimSpace(r.Nombres)
	r.Apellidos = strings.TrimSpace(r.Apellidos)
	r.Alias = strings.TrimSpace(r.Alias)
	r.Email = normalizeEmail(r.Email)
}

// LoginRequest is deliberately looser on password length than registration.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" validate:"min=20"`
}

func NewAuthHandler(commands AuthCommander, queries AuthQuerier) *AuthHandler {
	return &AuthHandler{commands: commands, queries: queries}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	req.normalize()
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.commands.Register(c.Request.Context(), cqrs.RegisterCommand{
		Nombres:   req.Nombres,
		Apellidos: req.Apellidos,
		Alias:     req.Alias,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	req.Email = normalizeEmail(req.Email)
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	view, err := h.queries.Login(c.Request.Context(), cqrs.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.RefreshToken == "" {
		middleware.RespondWithError(c, http.StatusBadRequest, "missing_refresh_token")
		return
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	pair, err := h.queries.RefreshToken(c.Request.Context(), cqrs.RefreshTokenCommand{
		Token: req.RefreshToken,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Me returns the principal attached by the auth middleware.
func (h *AuthHandler) Me(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "unauthenticated")
		return
	}
	c.JSON(http.StatusOK, models.MeView{ID: principal.ID, Email: principal.Email})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
