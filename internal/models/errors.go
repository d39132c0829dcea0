package models

import (
	"errors"
	"strconv"
)

var (
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
)

// DomainError is a non-zero status_code returned by a stored procedure.
// Meta is surfaced to the caller verbatim; Code is used when no metadata
// row came back at all.
type DomainError struct {
	Meta Row
	Code string
}

func (e *DomainError) Error() string {
	if e.Meta == nil {
		return "stored procedure failed: " + e.Code
	}
	if code, ok := e.Meta.StatusCode(); ok {
		return "stored procedure returned status_code " + strconv.FormatInt(code, 10)
	}
	return "stored procedure returned no status_code"
}

// Body is the response payload for the failure.
func (e *DomainError) Body() any {
	if e.Meta == nil {
		return map[string]string{"error": e.Code}
	}
	return e.Meta
}
