package repo

import (
	"context"
	"database/sql"
	"errors"

	"stylelinks/internal/domain"
)

func (r Repo) UpsertFieldEnhancer(ctx context.Context, tx *sql.Tx, fe domain.FieldEnhancer) error {
	if fe.Resource == "" || fe.Field == "" {
		return errors.New("resource and field required")
	}
	if fe.Settings == "" {
		fe.Settings = "{}"
	}
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO field_enhancers(resource,field,enhancer,settings_json,updated_at) VALUES (?,?,?,?,?)
ON CONFLICT(resource, field) DO UPDATE SET enhancer=excluded.enhancer, settings_json=excluded.settings_json, updated_at=excluded.updated_at`,
		fe.Resource, fe.Field, fe.Enhancer, fe.Settings, fe.UpdatedAt)
	return err
}

// GetFieldEnhancer returns the enhancer bound to resource.field.
func (r Repo) GetFieldEnhancer(ctx context.Context, resource, field string) (domain.FieldEnhancer, error) {
	var fe domain.FieldEnhancer
	err := r.DB.QueryRowContext(ctx, `SELECT resource,field,enhancer,settings_json,updated_at FROM field_enhancers WHERE resource=? AND field=?`, resource, field).
		Scan(&fe.Resource, &fe.Field, &fe.Enhancer, &fe.Settings, &fe.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.FieldEnhancer{}, ErrNotFound
	}
	return fe, err
}

func (r Repo) ListFieldEnhancers(ctx context.Context, resource string) ([]domain.FieldEnhancer, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT resource,field,enhancer,settings_json,updated_at FROM field_enhancers WHERE resource=? ORDER BY field`, resource)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.FieldEnhancer
	for rows.Next() {
		var fe domain.FieldEnhancer
		if err := rows.Scan(&fe.Resource, &fe.Field, &fe.Enhancer, &fe.Settings, &fe.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, fe)
	}
	return out, rows.Err()
}
