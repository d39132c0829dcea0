package command

import (
	"context"
	"fmt"

	"github.com/eaglebank/ge-api/internal/cqrs"
	"github.com/eaglebank/ge-api/internal/events"
	"github.com/eaglebank/ge-api/internal/models"
	"github.com/eaglebank/ge-api/internal/repository"
)

// AuthCommandService registers users through sp_usuario_crud.
type AuthCommandService struct {
	procs  ProcedureCaller
	hasher PasswordHasher
	tokens PairIssuer
	audit  Auditor
}

func NewAuthCommandService(procs ProcedureCaller, hasher PasswordHasher, tokens PairIssuer, audit Auditor) *AuthCommandService {
	return &AuthCommandService{procs: procs, hasher: hasher, tokens: tokens, audit: audit}
}

// Register creates the user and signs them in. A non-zero status_code comes
// back as *models.DomainError carrying the procedure's metadata row.
func (s *AuthCommandService) Register(ctx context.Context, cmd cqrs.RegisterCommand) (models.AuthView, error) {
	digest, err := s.hasher.Hash(ctx, cmd.Password)
	if err != nil {
		return models.AuthView{}, err
	}

	res, err := s.procs.Call(ctx, repository.ProcUsuarioCRUD,
		"A", nil, cmd.Nombres, cmd.Apellidos, nullIfEmpty(cmd.Alias), cmd.Email, digest, "A")
	if err != nil {
		return models.AuthView{}, err
	}

	meta, ok := res.Meta()
	if !ok {
		return models.AuthView{}, &models.DomainError{Code: "create_failed"}
	}
	if !res.Succeeded() {
		return models.AuthView{}, &models.DomainError{Meta: meta, Code: "create_failed"}
	}
	userID, ok := meta.Int64("usuario_id")
	if !ok || userID <= 0 {
		return models.AuthView{}, fmt.Errorf("%s succeeded without usuario_id", repository.ProcUsuarioCRUD)
	}

	pair, err := s.tokens.IssuePair(models.Principal{ID: userID, Email: cmd.Email})
	if err != nil {
		return models.AuthView{}, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, events.UserRegistered, events.UserRegisteredEvent{UserID: userID, Email: cmd.Email})
	}
	return models.AuthView{TokenPair: pair, UserID: userID}, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
