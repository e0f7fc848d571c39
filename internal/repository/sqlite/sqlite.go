package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"venturelab/internal/domain"
	"venturelab/internal/repository"

	_ "modernc.org/sqlite"
)

var _ repository.Store = (*Repository)(nil)

// Repository implements repository.Store using SQLite
type Repository struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath and migrates the schema.
// Use ":memory:" for a throwaway database.
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection keeps :memory: databases shared and serializes writers
	db.SetMaxOpenConns(1)

	repo := &Repository{db: db}
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS experiments (
		id TEXT PRIMARY KEY,
		template_id TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		data JSON NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS results (
		experiment_id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		version INTEGER NOT NULL DEFAULT 1,
		sealed INTEGER NOT NULL DEFAULT 0,
		data JSON NOT NULL,
		recorded_at INTEGER NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS results_revisions (
		experiment_id TEXT NOT NULL,
		version INTEGER NOT NULL,
		data JSON NOT NULL,
		superseded_at DATETIME,
		PRIMARY KEY (experiment_id, version)
	);

	CREATE INDEX IF NOT EXISTS idx_experiments_type ON experiments(type);
	CREATE INDEX IF NOT EXISTS idx_experiments_status ON experiments(status);
	CREATE INDEX IF NOT EXISTS idx_results_type ON results(type, recorded_at);
	`

	_, err := r.db.Exec(schema)
	return err
}

// SaveExperiment inserts or updates an experiment
func (r *Repository) SaveExperiment(ctx context.Context, exp *domain.Experiment) error {
	doc := exp.Clone()
	doc.Results = nil

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal experiment: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO experiments (id, template_id, type, status, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, exp.ID, exp.TemplateID, string(exp.Type), string(exp.Status), data, exp.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert experiment: %w", err)
	}
	return nil
}

// GetExperiment retrieves an experiment by ID
func (r *Repository) GetExperiment(ctx context.Context, id string) (*domain.Experiment, error) {
	var data []byte
	err := r.db.QueryRowContext(ctx, `SELECT data FROM experiments WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFound("experiment", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get experiment: %w", err)
	}

	exp := &domain.Experiment{}
	if err := json.Unmarshal(data, exp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal experiment %s: %w", id, err)
	}
	return exp, nil
}

// ListExperiments returns experiments oldest first, optionally filtered
func (r *Repository) ListExperiments(ctx context.Context, opts repository.ListOptions) ([]*domain.Experiment, error) {
	query := `SELECT id, data FROM experiments`
	var (
		where []string
		args  []any
	)
	if opts.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(opts.Type))
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(opts.Status))
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at, id"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query experiments: %w", err)
	}
	defer rows.Close()

	var out []*domain.Experiment
	for rows.Next() {
		var (
			id   string
			data []byte
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan experiment: %w", err)
		}
		exp := &domain.Experiment{}
		if err := json.Unmarshal(data, exp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal experiment %s: %w", id, err)
		}
		out = append(out, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating experiments: %w", err)
	}
	return out, nil
}

// DeleteExperiment removes an experiment
func (r *Repository) DeleteExperiment(ctx context.Context, id string) error {
	return r.deleteByID(ctx, `DELETE FROM experiments WHERE id = ?`, "experiment", id)
}

// SaveResult inserts or updates the current version of a result
func (r *Repository) SaveResult(ctx context.Context, result *domain.ExperimentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO results (experiment_id, type, status, version, sealed, data, recorded_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(experiment_id) DO UPDATE SET
			status = excluded.status,
			version = excluded.version,
			sealed = excluded.sealed,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, result.ExperimentID, string(result.ExperimentType), string(result.Status),
		result.Version, boolToInt(result.Sealed), data, result.Timestamp.UnixNano())
	if err != nil {
		return fmt.Errorf("failed to upsert result: %w", err)
	}
	return nil
}

// DeleteResult removes a result and its archived revisions
func (r *Repository) DeleteResult(ctx context.Context, experimentID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM results_revisions WHERE experiment_id = ?`, experimentID); err != nil {
		return fmt.Errorf("failed to delete revisions: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM results WHERE experiment_id = ?`, experimentID)
	if err != nil {
		return fmt.Errorf("failed to delete result: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFound("result", experimentID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListResults returns results oldest first
func (r *Repository) ListResults(ctx context.Context, typ domain.ExperimentType) ([]*domain.ExperimentResult, error) {
	query := `SELECT experiment_id, data FROM results`
	var args []any
	if typ != "" {
		query += ` WHERE type = ?`
		args = append(args, string(typ))
	}
	query += ` ORDER BY recorded_at, experiment_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

// ArchiveRevision stores a superseded version of a result
func (r *Repository) ArchiveRevision(ctx context.Context, result *domain.ExperimentResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal revision: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO results_revisions (experiment_id, version, data, superseded_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(experiment_id, version) DO UPDATE SET
			data = excluded.data,
			superseded_at = excluded.superseded_at
	`, result.ExperimentID, result.Version, data, timePtrToNull(result.SupersededAt))
	if err != nil {
		return fmt.Errorf("failed to archive revision: %w", err)
	}
	return nil
}

// ListRevisions returns archived versions of a result
func (r *Repository) ListRevisions(ctx context.Context, experimentID string) ([]*domain.ExperimentResult, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT experiment_id, data FROM results_revisions
		WHERE experiment_id = ?
		ORDER BY version
	`, experimentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query revisions: %w", err)
	}
	defer rows.Close()

	return scanResults(rows)
}

func (r *Repository) deleteByID(ctx context.Context, query, kind, id string) error {
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.NewNotFound(kind, id)
	}
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}
