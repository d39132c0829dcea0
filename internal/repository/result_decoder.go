package repository

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/eaglebank/ge-api/internal/models"
)

// Envelope columns: a set-returning function cannot emit several result sets
// on PostgreSQL, so procedures return (result_set, payload) rows instead and
// they are regrouped here.
const (
	envelopeIndexColumn   = "result_set"
	envelopePayloadColumn = "payload"
)

func decodeResult(rows *sql.Rows) (models.StoredProcedureResult, error) {
	var res models.StoredProcedureResult
	for {
		cols, err := rows.Columns()
		if err != nil {
			return res, err
		}
		set, err := scanSet(rows, cols)
		if err != nil {
			return res, err
		}
		if isEnvelope(cols) {
			sets, err := unwrapEnvelope(set)
			if err != nil {
				return res, err
			}
			res.Sets = append(res.Sets, sets...)
		} else {
			res.Sets = append(res.Sets, set)
		}
		if !rows.NextResultSet() {
			break
		}
	}
	return res, rows.Err()
}

func scanSet(rows *sql.Rows, cols []string) (models.ResultSet, error) {
	set := models.ResultSet{}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		row := make(models.Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = values[i]
		}
		set = append(set, row)
	}
	return set, rows.Err()
}

func isEnvelope(cols []string) bool {
	return len(cols) == 2 && cols[0] == envelopeIndexColumn && cols[1] == envelopePayloadColumn
}

func unwrapEnvelope(set models.ResultSet) ([]models.ResultSet, error) {
	grouped := map[int64]models.ResultSet{}
	for _, row := range set {
		idx, ok := row.Int64(envelopeIndexColumn)
		if !ok {
			return nil, fmt.Errorf("envelope row without %s", envelopeIndexColumn)
		}
		if _, seen := grouped[idx]; !seen {
			grouped[idx] = models.ResultSet{}
		}
		payload, err := decodePayload(row[envelopePayloadColumn])
		if err != nil {
			return nil, err
		}
		if payload != nil {
			grouped[idx] = append(grouped[idx], payload)
		}
	}

	keys := make([]int64, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	sets := make([]models.ResultSet, 0, len(keys))
	for _, k := range keys {
		sets = append(sets, grouped[k])
	}
	return sets, nil
}

func decodePayload(v any) (models.Row, error) {
	var raw []byte
	switch t := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return models.Row(t), nil
	case string:
		raw = []byte(t)
	case []byte:
		raw = t
	default:
		return nil, fmt.Errorf("unexpected payload type %T", v)
	}
	if len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var row models.Row
	if err := dec.Decode(&row); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	return row, nil
}
