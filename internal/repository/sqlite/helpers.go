package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"venturelab/internal/domain"
)

// timePtrToNull safely converts *time.Time to sql.NullTime
func timePtrToNull(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

// boolToInt converts bool to SQLite integer (0 or 1)
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// scanResults decodes (experiment_id, data) rows into results
func scanResults(rows *sql.Rows) ([]*domain.ExperimentResult, error) {
	var out []*domain.ExperimentResult
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res := &domain.ExperimentResult{}
		if err := json.Unmarshal(data, res); err != nil {
			return nil, fmt.Errorf("failed to unmarshal result %s: %w", id, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}
	return out, nil
}
