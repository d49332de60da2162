package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/terahq/tera/ports"
)

// SettingStore implements ports.ModuleSettingStore using SQLite.
// Values are stored JSON-encoded, one row per key.
type SettingStore struct {
	db *DB
}

// NewSettingStore creates a new setting store.
func NewSettingStore(db *DB) *SettingStore {
	return &SettingStore{db: db}
}

// Get returns the stored overrides for a module.
func (s *SettingStore) Get(ctx context.Context, moduleID string) (map[string]any, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value FROM module_settings WHERE module_id = ?`,
		moduleID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]any)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		var value any
		if err := json.Unmarshal([]byte(raw), &value); err != nil {
			return nil, fmt.Errorf("decode setting %s.%s: %w", moduleID, key, err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

// Set replaces the stored overrides for a module.
func (s *SettingStore) Set(ctx context.Context, moduleID string, values map[string]any) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM module_settings WHERE module_id = ?`, moduleID,
	); err != nil {
		tx.Rollback()
		return err
	}

	for key, value := range values {
		raw, err := json.Marshal(value)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("encode setting %s.%s: %w", moduleID, key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO module_settings (module_id, key, value) VALUES (?, ?, ?)`,
			moduleID, key, string(raw),
		); err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

var _ ports.ModuleSettingStore = (*SettingStore)(nil)
