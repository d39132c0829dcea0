package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eaglebank/ge-api/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/sync/semaphore"
)

const (
	ProcUsuarioCRUD          = "sp_usuario_crud"
	ProcRegistrarTransaccion = "sp_registrar_transaccion"
)

var ErrProcedureNotAllowed = errors.New("procedure not allowed")

var identifier = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

var procedureLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "ge_procedure_call_duration_seconds",
	Help:    "Stored procedure call latency",
	Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
}, []string{"procedure", "outcome"})

// GatewayError is a database-layer failure, as opposed to a non-zero
// status_code reported by the procedure itself.
type GatewayError struct {
	Procedure string
	Err       error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("call %s: %v", e.Procedure, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// ProcedureGateway invokes allow-listed stored procedures with bound
// arguments and decodes every result set they return.
//
// Calls are admitted in arrival order, at most poolSize at a time. Once
// admitted a call runs to completion even if the caller goes away.
type ProcedureGateway struct {
	db      *sql.DB
	dialect Dialect
	allowed map[string]bool
	slots   *semaphore.Weighted
}

func NewProcedureGateway(db *sql.DB, dialect Dialect, poolSize int, procedures ...string) *ProcedureGateway {
	if poolSize < 1 {
		poolSize = 1
	}
	if len(procedures) == 0 {
		procedures = []string{ProcUsuarioCRUD, ProcRegistrarTransaccion}
	}
	allowed := make(map[string]bool, len(procedures))
	for _, p := range procedures {
		if identifier.MatchString(p) {
			allowed[p] = true
		}
	}
	return &ProcedureGateway{
		db:      db,
		dialect: dialect,
		allowed: allowed,
		slots:   semaphore.NewWeighted(int64(poolSize)),
	}
}

func (g *ProcedureGateway) Call(ctx context.Context, name string, args ...any) (models.StoredProcedureResult, error) {
	if !g.allowed[name] {
		return models.StoredProcedureResult{}, fmt.Errorf("%w: %q", ErrProcedureNotAllowed, name)
	}

	release, err := g.admit(ctx)
	if err != nil {
		return models.StoredProcedureResult{}, &GatewayError{Procedure: name, Err: err}
	}
	defer release()

	// Once admitted the call runs to completion even if the client leaves.
	start := time.Now()
	res, err := g.query(context.WithoutCancel(ctx), name, args)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	procedureLatency.WithLabelValues(name, outcome).Observe(time.Since(start).Seconds())
	if err != nil {
		return models.StoredProcedureResult{}, &GatewayError{Procedure: name, Err: err}
	}
	return res, nil
}

func (g *ProcedureGateway) query(ctx context.Context, name string, args []any) (models.StoredProcedureResult, error) {
	rows, err := g.db.QueryContext(ctx, callStatement(g.dialect, name, len(args)), args...)
	if err != nil {
		return models.StoredProcedureResult{}, err
	}
	defer rows.Close()
	return decodeResult(rows)
}

// Now returns the database clock.
func (g *ProcedureGateway) Now(ctx context.Context) (time.Time, error) {
	release, err := g.admit(ctx)
	if err != nil {
		return time.Time{}, err
	}
	defer release()

	var now time.Time
	if err := g.db.QueryRowContext(ctx, "SELECT NOW()").Scan(&now); err != nil {
		return time.Time{}, &GatewayError{Procedure: "now", Err: err}
	}
	return now, nil
}

func (g *ProcedureGateway) Ping(ctx context.Context) (int, error) {
	release, err := g.admit(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var result int
	if err := g.db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return 0, &GatewayError{Procedure: "ping", Err: err}
	}
	return result, nil
}

func (g *ProcedureGateway) admit(ctx context.Context) (func(), error) {
	if err := g.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.slots.Release(1) }, nil
}

func callStatement(dialect Dialect, name string, n int) string {
	params := make([]string, n)
	for i := range params {
		if dialect == MySQL {
			params[i] = "?"
		} else {
			params[i] = "$" + strconv.Itoa(i+1)
		}
	}
	if dialect == MySQL {
		return "CALL " + name + "(" + strings.Join(params, ", ") + ")"
	}
	return "SELECT * FROM " + name + "(" + strings.Join(params, ", ") + ")"
}
