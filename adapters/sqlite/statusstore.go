package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/terahq/tera/ports"
)

// StatusStore implements ports.ModuleStatusStore using SQLite.
type StatusStore struct {
	db *DB
}

// NewStatusStore creates a new status store.
func NewStatusStore(db *DB) *StatusStore {
	return &StatusStore{db: db}
}

// Get retrieves the stored status for a module.
func (s *StatusStore) Get(ctx context.Context, moduleID string) (ports.ModuleStatus, bool, error) {
	var status ports.ModuleStatus
	var enabled int
	var updatedAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT module_id, enabled, updated_at FROM module_status WHERE module_id = ?`,
		moduleID,
	).Scan(&status.ModuleID, &enabled, &updatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return ports.ModuleStatus{}, false, nil
	}
	if err != nil {
		return ports.ModuleStatus{}, false, err
	}

	status.Enabled = enabled != 0
	status.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return status, true, nil
}

// Set stores the status, replacing any prior row.
func (s *StatusStore) Set(ctx context.Context, status ports.ModuleStatus) error {
	enabled := 0
	if status.Enabled {
		enabled = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO module_status (module_id, enabled, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(module_id) DO UPDATE SET
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`, status.ModuleID, enabled, status.UpdatedAt.UTC().Format(time.RFC3339))
	return err
}

// List returns all stored statuses sorted by module id.
func (s *StatusStore) List(ctx context.Context) ([]ports.ModuleStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT module_id, enabled, updated_at FROM module_status ORDER BY module_id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ports.ModuleStatus
	for rows.Next() {
		var status ports.ModuleStatus
		var enabled int
		var updatedAt string
		if err := rows.Scan(&status.ModuleID, &enabled, &updatedAt); err != nil {
			return nil, err
		}
		status.Enabled = enabled != 0
		status.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		out = append(out, status)
	}
	return out, rows.Err()
}

var _ ports.ModuleStatusStore = (*StatusStore)(nil)
