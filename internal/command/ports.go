package command

import (
	"context"

	"github.com/eaglebank/ge-api/internal/models"
)

// ProcedureCaller is the stored-procedure gateway.
type ProcedureCaller interface {
	Call(ctx context.Context, name string, args ...any) (models.StoredProcedureResult, error)
}

type PasswordHasher interface {
	Hash(ctx context.Context, plaintext string) (string, error)
}

type PairIssuer interface {
	IssuePair(models.Principal) (models.TokenPair, error)
}

// Auditor records best-effort audit events.
type Auditor interface {
	Record(ctx context.Context, eventType string, data any)
}
