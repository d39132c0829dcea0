package command

import (
	"context"
	"strconv"

	"github.com/eaglebank/ge-api/internal/cqrs"
	"github.com/eaglebank/ge-api/internal/events"
	"github.com/eaglebank/ge-api/internal/models"
	"github.com/eaglebank/ge-api/internal/repository"
	"github.com/shopspring/decimal"
)

const (
	kindMovement = "MOV"
	kindTransfer = "TRX"

	channelApp     = "APP"
	statusApproved = "APR"
)

// TransferCommandService submits accounting entries to
// sp_registrar_transaccion. Balances and ledger rules live in the procedure.
type TransferCommandService struct {
	procs ProcedureCaller
	audit Auditor
}

func NewTransferCommandService(procs ProcedureCaller, audit Auditor) *TransferCommandService {
	return &TransferCommandService{procs: procs, audit: audit}
}

// SubmitMovement records a single-leg entry. On success the procedure's
// metadata row is returned.
func (s *TransferCommandService) SubmitMovement(ctx context.Context, cmd cqrs.SubmitMovementCommand) (models.Row, error) {
	args := []any{kindMovement}
	args = append(args, legArgs(cmd.Origen, cmd.Monto)...)
	args = append(args, nil, nil, nil, nil, nil)
	args = append(args, channelApp, statusApproved, cmd.Referencia, cmd.Detalle, actorTag(cmd.Principal))

	meta, err := s.submit(ctx, args, "mov_failed")
	if err != nil {
		return nil, err
	}
	s.record(ctx, kindMovement, cmd.Principal, cmd.Origen.ID, 0, cmd.Monto.String(), cmd.Referencia, meta)
	return meta, nil
}

// SubmitTransfer records a two-leg entry from origin to destination.
func (s *TransferCommandService) SubmitTransfer(ctx context.Context, cmd cqrs.SubmitTransferCommand) (models.Row, error) {
	args := []any{kindTransfer}
	args = append(args, legArgs(cmd.Origen, cmd.Monto)...)
	args = append(args,
		cmd.Destino.TipoValor, cmd.Destino.ID, cmd.Destino.MonedaValor,
		cmd.Destino.CausaValor, cmd.Destino.Naturaleza,
	)
	args = append(args, channelApp, statusApproved, cmd.Referencia, cmd.Detalle, actorTag(cmd.Principal))

	meta, err := s.submit(ctx, args, "trx_failed")
	if err != nil {
		return nil, err
	}
	s.record(ctx, kindTransfer, cmd.Principal, cmd.Origen.ID, cmd.Destino.ID, cmd.Monto.String(), cmd.Referencia, meta)
	return meta, nil
}

func (s *TransferCommandService) submit(ctx context.Context, args []any, failCode string) (models.Row, error) {
	res, err := s.procs.Call(ctx, repository.ProcRegistrarTransaccion, args...)
	if err != nil {
		return nil, err
	}
	meta, ok := res.Meta()
	if !ok {
		return nil, &models.DomainError{Code: failCode}
	}
	if !res.Succeeded() {
		return nil, &models.DomainError{Meta: meta, Code: failCode}
	}
	return meta, nil
}

func (s *TransferCommandService) record(ctx context.Context, kind string, p models.Principal, origen, destino int64, monto, ref string, meta models.Row) {
	if s.audit == nil {
		return
	}
	code, _ := meta.StatusCode()
	s.audit.Record(ctx, events.TransactionSubmitted, events.TransactionSubmittedEvent{
		Kind:       kind,
		UserID:     p.ID,
		OrigenID:   origen,
		DestinoID:  destino,
		Monto:      monto,
		Referencia: ref,
		StatusCode: code,
	})
}

// legArgs is the origin block: type, id, currency, amount, cause, nature.
func legArgs(l cqrs.Leg, monto decimal.Decimal) []any {
	return []any{l.TipoValor, l.ID, l.MonedaValor, monto, l.CausaValor, l.Naturaleza}
}

func actorTag(p models.Principal) string {
	return "uid:" + strconv.FormatInt(p.ID, 10)
}
