package handler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/eaglebank/ge-api/internal/cqrs"
	"github.com/eaglebank/ge-api/internal/middleware"
	"github.com/eaglebank/ge-api/internal/models"
	"github.com/gin-gonic/gin"
)

// ---- mock implementation ----

type mockTransferCommander struct {
	movementFn func(cqrs.SubmitMovementCommand) (models.Row, error)
	transferFn func(cqrs.SubmitTransferCommand) (models.Row, error)
}

func (m *mockTransferCommander) SubmitMovement(_ context.Context, cmd cqrs.SubmitMovementCommand) (models.Row, error) {
	if m.movementFn != nil {
		return m.movementFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockTransferCommander) SubmitTransfer(_ context.Context, cmd cqrs.SubmitTransferCommand) (models.Row, error) {
	if m.transferFn != nil {
		return m.transferFn(cmd)
	}
	return nil, fmt.Errorf("not configured")
}

// ---- helpers ----

func newTransferTestRouter(cmds TransferCommander, principal *models.Principal) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h := NewTransferHandler(cmds)
	transfers := r.Group("/transfers", fakeAuth(principal))
	transfers.POST("/movement", h.SubmitMovement)
	transfers.POST("/transfer", h.SubmitTransfer)
	return r
}

func movementBody() map[string]interface{} {
	return map[string]interface{}{
		"origen_tipo_valor":   1,
		"origen_id":           "10",
		"origen_moneda_valor": 0,
		"monto":               150.75,
		"causa_origen_valor":  "DEP",
		"naturaleza_origen":   "CR",
		"referencia":          "REF-001",
		"detalle":             "Depósito inicial",
	}
}

func transferBody() map[string]interface{} {
	b := movementBody()
	b["naturaleza_origen"] = "DB"
	b["causa_origen_valor"] = "TRF"
	b["destino_tipo_valor"] = "2"
	b["destino_id"] = 20
	b["destino_moneda_valor"] = "0"
	b["causa_destino_valor"] = "TRF"
	b["naturaleza_destino"] = "CR"
	return b
}

var alice = &models.Principal{ID: 42, Email: "ana@x.com"}

// ---- tests ----

func TestSubmitMovement(t *testing.T) {
	zeroAmount := movementBody()
	zeroAmount["monto"] = "0"
	badNaturaleza := movementBody()
	badNaturaleza["naturaleza_origen"] = "XX"
	badTipo := movementBody()
	badTipo["origen_tipo_valor"] = 4
	padded := movementBody()
	padded["referencia"] = "  REF-001  "

	tests := []struct {
		name           string
		body           interface{}
		principal      *models.Principal
		movementFn     func(cqrs.SubmitMovementCommand) (models.Row, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:      "success - returns the metadata row",
			body:      movementBody(),
			principal: alice,
			movementFn: func(cmd cqrs.SubmitMovementCommand) (models.Row, error) {
				if cmd.Principal.ID != 42 || cmd.Origen.ID != 10 || cmd.Origen.TipoValor != 1 {
					return nil, fmt.Errorf("unexpected command: %+v", cmd)
				}
				if cmd.Monto.String() != "150.75" {
					return nil, fmt.Errorf("unexpected monto: %s", cmd.Monto)
				}
				return models.Row{"status_code": int64(0), "transaccion_id": int64(9)}, nil
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"transaccion_id":9`,
		},
		{
			name:      "success - text fields are trimmed",
			body:      padded,
			principal: alice,
			movementFn: func(cmd cqrs.SubmitMovementCommand) (models.Row, error) {
				if cmd.Referencia != "REF-001" {
					return nil, fmt.Errorf("referencia not trimmed: %q", cmd.Referencia)
				}
				return models.Row{"status_code": int64(0)}, nil
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "bad request - zero amount",
			body:           zeroAmount,
			principal:      alice,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"field":"monto"`,
		},
		{
			name:           "bad request - unknown naturaleza",
			body:           badNaturaleza,
			principal:      alice,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"field":"naturaleza_origen"`,
		},
		{
			name:           "bad request - tipo valor out of range",
			body:           badTipo,
			principal:      alice,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"field":"origen_tipo_valor"`,
		},
		{
			name:      "bad request - procedure rejected the movement",
			body:      movementBody(),
			principal: alice,
			movementFn: func(cmd cqrs.SubmitMovementCommand) (models.Row, error) {
				return nil, &models.DomainError{Meta: models.Row{"status_code": int64(3), "message": "saldo insuficiente"}}
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `saldo insuficiente`,
		},
		{
			name:      "bad request - no metadata row",
			body:      movementBody(),
			principal: alice,
			movementFn: func(cmd cqrs.SubmitMovementCommand) (models.Row, error) {
				return nil, &models.DomainError{Code: "mov_failed"}
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `mov_failed`,
		},
		{
			name:           "unauthorised - no principal",
			body:           movementBody(),
			principal:      nil,
			expectedStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTransferTestRouter(&mockTransferCommander{movementFn: tt.movementFn}, tt.principal)
			w := doRequest(router, http.MethodPost, "/transfers/movement", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedBody != "" && !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("[%s] expected body to contain %s; body: %s", tt.name, tt.expectedBody, w.Body.String())
			}
		})
	}
}

func TestSubmitTransfer(t *testing.T) {
	missingDestino := transferBody()
	delete(missingDestino, "destino_id")

	tests := []struct {
		name           string
		body           interface{}
		transferFn     func(cqrs.SubmitTransferCommand) (models.Row, error)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "success - both legs reach the command",
			body: transferBody(),
			transferFn: func(cmd cqrs.SubmitTransferCommand) (models.Row, error) {
				if cmd.Destino.ID != 20 || cmd.Destino.TipoValor != 2 || cmd.Destino.Naturaleza != "CR" {
					return nil, fmt.Errorf("unexpected destino: %+v", cmd.Destino)
				}
				if cmd.Origen.Naturaleza != "DB" {
					return nil, fmt.Errorf("unexpected origen: %+v", cmd.Origen)
				}
				return models.Row{"status_code": int64(0)}, nil
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   `"status_code":0`,
		},
		{
			name:           "bad request - missing destination id",
			body:           missingDestino,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"field":"destino_id"`,
		},
		{
			name:           "bad request - empty body",
			body:           nil,
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `Invalid request data`,
		},
		{
			name: "internal error - gateway failure",
			body: transferBody(),
			transferFn: func(cmd cqrs.SubmitTransferCommand) (models.Row, error) {
				return nil, fmt.Errorf("driver: bad connection")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `internal_error`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTransferTestRouter(&mockTransferCommander{transferFn: tt.transferFn}, alice)
			w := doRequest(router, http.MethodPost, "/transfers/transfer", tt.body)
			if w.Code != tt.expectedStatus {
				t.Errorf("[%s] expected %d got %d; body: %s", tt.name, tt.expectedStatus, w.Code, w.Body.String())
			}
			if tt.expectedBody != "" && !strings.Contains(w.Body.String(), tt.expectedBody) {
				t.Errorf("[%s] expected body to contain %s; body: %s", tt.name, tt.expectedBody, w.Body.String())
			}
		})
	}
}
