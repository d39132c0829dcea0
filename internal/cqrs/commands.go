package cqrs

import (
	"github.com/eaglebank/ge-api/internal/models"
	"github.com/shopspring/decimal"
)

type RegisterCommand struct {
	Nombres   string
	Apellidos string
	Alias     string
	Email     string
	Password  string
}

type LoginCommand struct {
	Email    string
	Password string
}

type RefreshTokenCommand struct {
	Token string
}

// Leg is one side of an accounting entry.
type Leg struct {
	TipoValor   int64
	ID          int64
	MonedaValor int64
	CausaValor  string
	Naturaleza  string
}

// SubmitMovementCommand records a single-leg entry against the origin account.
type SubmitMovementCommand struct {
	Principal  models.Principal
	Origen     Leg
	Monto      decimal.Decimal
	Referencia string
	Detalle    string
}

// SubmitTransferCommand records a two-leg entry from origin to destination.
type SubmitTransferCommand struct {
	Principal  models.Principal
	Origen     Leg
	Destino    Leg
	Monto      decimal.Decimal
	Referencia string
	Detalle    string
}
