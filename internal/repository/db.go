package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
)

// Open connects with driver ("postgres" for lib/pq, "pgx" for pgx, "mysql")
// and caps the pool at poolSize connections.
func Open(ctx context.Context, driver, dsn string, poolSize int) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(poolSize)
	db.SetMaxIdleConns(poolSize)
	db.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Dialect selects how a procedure call is spelled.
type Dialect int

const (
	// Postgres calls set-returning functions: SELECT * FROM name($1, ...).
	Postgres Dialect = iota
	// MySQL calls procedures directly: CALL name(?, ...).
	MySQL
)

func DialectFor(driver string) Dialect {
	if driver == "mysql" {
		return MySQL
	}
	return Postgres
}
