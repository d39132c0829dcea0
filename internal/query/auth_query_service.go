package query

import (
	"context"
	"fmt"

	"github.com/eaglebank/ge-api/internal/cqrs"
	"github.com/eaglebank/ge-api/internal/models"
	"github.com/eaglebank/ge-api/internal/repository"
	"github.com/eaglebank/ge-api/internal/security"
)

type ProcedureCaller interface {
	Call(ctx context.Context, name string, args ...any) (models.StoredProcedureResult, error)
}

type PasswordVerifier interface {
	Verify(ctx context.Context, plaintext, digest string) (bool, error)
}

type TokenService interface {
	IssuePair(models.Principal) (models.TokenPair, error)
	Verify(token string, class security.KeyClass) (models.Principal, error)
}

// AuthQueryService handles login and token refresh. Neither changes stored
// state, so they live on the read side.
type AuthQueryService struct {
	procs  ProcedureCaller
	hasher PasswordVerifier
	tokens TokenService
}

func NewAuthQueryService(procs ProcedureCaller, hasher PasswordVerifier, tokens TokenService) *AuthQueryService {
	return &AuthQueryService{procs: procs, hasher: hasher, tokens: tokens}
}

// Login looks the user up by email and checks the password. An unknown email
// is a *models.DomainError; a wrong password is models.ErrInvalidCredentials.
func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (models.AuthView, error) {
	res, err := s.procs.Call(ctx, repository.ProcUsuarioCRUD,
		"B", nil, nil, nil, nil, cmd.Email, nil, nil)
	if err != nil {
		return models.AuthView{}, err
	}

	meta, ok := res.Meta()
	if !ok {
		return models.AuthView{}, &models.DomainError{Code: "user_not_found"}
	}
	if !res.Succeeded() {
		return models.AuthView{}, &models.DomainError{Meta: meta, Code: "user_not_found"}
	}

	user, ok := res.Payload()
	if !ok {
		return models.AuthView{}, models.ErrInvalidCredentials
	}
	digest, ok := user.String("usr_contrasena_hash")
	if !ok || digest == "" {
		return models.AuthView{}, models.ErrInvalidCredentials
	}
	match, err := s.hasher.Verify(ctx, cmd.Password, digest)
	if err != nil {
		return models.AuthView{}, err
	}
	if !match {
		return models.AuthView{}, models.ErrInvalidCredentials
	}

	userID, ok := user.Int64("usr_id_usuario")
	if !ok || userID <= 0 {
		return models.AuthView{}, fmt.Errorf("%s returned a user without usr_id_usuario", repository.ProcUsuarioCRUD)
	}
	email, ok := user.String("usr_email")
	if !ok || email == "" {
		email = cmd.Email
	}

	pair, err := s.tokens.IssuePair(models.Principal{ID: userID, Email: email})
	if err != nil {
		return models.AuthView{}, err
	}
	return models.AuthView{TokenPair: pair, UserID: userID}, nil
}

// RefreshToken exchanges a valid refresh token for a new pair. The presented
// token stays valid until it expires.
func (s *AuthQueryService) RefreshToken(_ context.Context, cmd cqrs.RefreshTokenCommand) (models.TokenPair, error) {
	principal, err := s.tokens.Verify(cmd.Token, security.RefreshKey)
	if err != nil {
		return models.TokenPair{}, models.ErrInvalidRefreshToken
	}
	return s.tokens.IssuePair(principal)
}
