package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/eaglebank/ge-api/internal/cqrs"
	"github.com/eaglebank/ge-api/internal/middleware"
	"github.com/eaglebank/ge-api/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// TransferCommander defines the write-side operations used by TransferHandler.
type TransferCommander interface {
	SubmitMovement(context.Context, cqrs.SubmitMovementCommand) (models.Row, error)
	SubmitTransfer(context.Context, cqrs.SubmitTransferCommand) (models.Row, error)
}

type TransferHandler struct {
	commands TransferCommander
}

// MovementRequest is a single-leg entry on the origin account.
type MovementRequest struct {
	OrigenTipoValor   models.FlexString `json:"origen_tipo_valor" validate:"required,oneof=1 2 3"`
	OrigenID          models.FlexString `json:"origen_id" validate:"required,posint"`
	OrigenMonedaValor models.FlexString `json:"origen_moneda_valor" validate:"required,oneof=0 1"`
	Monto             models.FlexString `json:"monto" validate:"required,posdecimal"`
	CausaOrigenValor  string            `json:"causa_origen_valor" validate:"required,min=3,max=10"`
	NaturalezaOrigen  string            `json:"naturaleza_origen" validate:"required,oneof=CR DB"`
	Referencia        string            `json:"referencia" validate:"required,min=3,max=50"`
	Detalle           string            `json:"detalle" validate:"required,min=3,max=255"`
}

// TransferRequest adds the destination leg.
type TransferRequest struct {
	MovementRequest
	DestinoTipoValor   models.FlexString `json:"destino_tipo_valor" validate:"required,oneof=1 2 3"`
	DestinoID          models.FlexString `json:"destino_id" validate:"required,posint"`
	DestinoMonedaValor models.FlexString `json:"destino_moneda_valor" validate:"required,oneof=0 1"`
	CausaDestinoValor  string            `json:"causa_destino_valor" validate:"required,min=3,max=10"`
	NaturalezaDestino  string            `json:"naturaleza_destino" validate:"required,oneof=CR DB"`
}

func (r *MovementRequest) normalize() {
	r.OrigenTipoValor = trimFlex(r.OrigenTipoValor)
	r.OrigenID = trimFlex(r.OrigenID)
	r.OrigenMonedaValor = trimFlex(r.OrigenMonedaValor)
	r.Monto = trimFlex(r.Monto)
	r.CausaOrigenValor = strings.TrimSpace(r.CausaOrigenValor)
	r.NaturalezaOrigen = strings.TrimSpace(r.NaturalezaOrigen)
	r.Referencia = strings.TrimSpace(r.Referencia)
	r.Detalle = strings.TrimSpace(r.Detalle)
}

func (r *TransferRequest) normalize() {
	r.MovementRequest.normalize()
	r.DestinoTipoValor = trimFlex(r.DestinoTipoValor)
	r.DestinoID = trimFlex(r.DestinoID)
	r.DestinoMonedaValor = trimFlex(r.DestinoMonedaValor)
	r.CausaDestinoValor = strings.TrimSpace(r.CausaDestinoValor)
	r.NaturalezaDestino = strings.TrimSpace(r.NaturalezaDestino)
}

func NewTransferHandler(commands TransferCommander) *TransferHandler {
	return &TransferHandler{commands: commands}
}

func (h *TransferHandler) SubmitMovement(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req MovementRequest
	if !bindJSON(c, &req) {
		return
	}
	req.normalize()
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	origen, monto, err := req.origin()
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "invalid_body")
		return
	}

	meta, err := h.commands.SubmitMovement(c.Request.Context(), cqrs.SubmitMovementCommand{
		Principal:  principal,
		Origen:     origen,
		Monto:      monto,
		Referencia: req.Referencia,
		Detalle:    req.Detalle,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, meta)
}

func (h *TransferHandler) SubmitTransfer(c *gin.Context) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		middleware.RespondWithError(c, http.StatusUnauthorized, "unauthenticated")
		return
	}

	var req TransferRequest
	if !bindJSON(c, &req) {
		return
	}
	req.normalize()
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return
	}

	origen, monto, err := req.origin()
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "invalid_body")
		return
	}
	destino, err := parseLeg(req.DestinoTipoValor, req.DestinoID, req.DestinoMonedaValor, req.CausaDestinoValor, req.NaturalezaDestino)
	if err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "invalid_body")
		return
	}

	meta, err := h.commands.SubmitTransfer(c.Request.Context(), cqrs.SubmitTransferCommand{
		Principal:  principal,
		Origen:     origen,
		Destino:    destino,
		Monto:      monto,
		Referencia: req.Referencia,
		Detalle:    req.Detalle,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, meta)
}

func (r *MovementRequest) origin() (cqrs.Leg, decimal.Decimal, error) {
	leg, err := parseLeg(r.OrigenTipoValor, r.OrigenID, r.OrigenMonedaValor, r.CausaOrigenValor, r.NaturalezaOrigen)
	if err != nil {
		return cqrs.Leg{}, decimal.Decimal{}, err
	}
	monto, err := decimal.NewFromString(r.Monto.String())
	if err != nil {
		return cqrs.Leg{}, decimal.Decimal{}, fmt.Errorf("monto: %w", err)
	}
	return leg, monto, nil
}

func parseLeg(tipo, id, moneda models.FlexString, causa, naturaleza string) (cqrs.Leg, error) {
	var (
		leg cqrs.Leg
		err error
	)
	if leg.TipoValor, err = strconv.ParseInt(tipo.String(), 10, 64); err != nil {
		return cqrs.Leg{}, fmt.Errorf("tipo_valor: %w", err)
	}
	if leg.ID, err = strconv.ParseInt(id.String(), 10, 64); err != nil {
		return cqrs.Leg{}, fmt.Errorf("id: %w", err)
	}
	if leg.MonedaValor, err = strconv.ParseInt(moneda.String(), 10, 64); err != nil {
		return cqrs.Leg{}, fmt.Errorf("moneda_valor: %w", err)
	}
	leg.CausaValor = causa
	leg.Naturaleza = naturaleza
	return leg, nil
}

func trimFlex(s models.FlexString) models.FlexString {
	return models.FlexString(strings.TrimSpace(string(s)))
}
