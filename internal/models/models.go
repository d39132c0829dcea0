package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Principal is the identity asserted by a verified token.
type Principal struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Row is a single decoded row keyed by column name.
type Row map[string]any

type ResultSet []Row

// StoredProcedureResult holds the ordered result sets of one procedure call.
// The first row of the first set is the metadata row carrying status_code.
type StoredProcedureResult struct {
	Sets []ResultSet
}

// Meta returns the metadata row, if the procedure produced one.
func (r StoredProcedureResult) Meta() (Row, bool) {
	return r.first(0)
}

// Payload returns the first row of the second result set.
func (r StoredProcedureResult) Payload() (Row, bool) {
	return r.first(1)
}

func (r StoredProcedureResult) first(set int) (Row, bool) {
	if set >= len(r.Sets) || len(r.Sets[set]) == 0 {
		return nil, false
	}
	return r.Sets[set][0], true
}

// Succeeded reports whether the metadata row exists and carries status_code 0.
func (r StoredProcedureResult) Succeeded() bool {
	meta, ok := r.Meta()
	if !ok {
		return false
	}
	code, ok := meta.StatusCode()
	return ok && code == 0
}

func (r Row) StatusCode() (int64, bool) {
	return r.Int64("status_code")
}

// Int64 reads an integer column regardless of how the driver typed it.
func (r Row) Int64(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return n, err == nil
	case []byte:
		n, err := strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}

func (r Row) String(key string) (string, bool) {
	switch v := r[key].(type) {
	case string:
		return v, true
	case []byte:
		return string(v), true
	case nil:
		return "", false
	default:
		return fmt.Sprint(v), true
	}
}

// FlexString accepts either a JSON string or a JSON number. Clients submit
// account types, ids and amounts in both shapes.
type FlexString string

func (s *FlexString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*s = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = FlexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", raw)
	}
	*s = FlexString(n.String())
	return nil
}

func (s FlexString) String() string {
	return string(s)
}
