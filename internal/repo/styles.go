package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"stylelinks/internal/domain"
)

const styleColumns = `id,label,status,relations_json,created_at`

func scanStyle(row rowScanner) (domain.ImageStyle, error) {
	var s domain.ImageStyle
	var relations string
	err := row.Scan(&s.ID, &s.Label, &s.Status, &relations, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ImageStyle{}, ErrNotFound
	}
	if err != nil {
		return domain.ImageStyle{}, err
	}
	s.Relations = []string{}
	if relations != "" {
		if err := json.Unmarshal([]byte(relations), &s.Relations); err != nil {
			return domain.ImageStyle{}, fmt.Errorf("style %s relations: %w", s.ID, err)
		}
	}
	return s, nil
}

// UpsertStyle creates or replaces a style definition.
func (r Repo) UpsertStyle(ctx context.Context, tx *sql.Tx, s domain.ImageStyle) error {
	if strings.TrimSpace(s.ID) == "" {
		return errors.New("style id required")
	}
	if s.Status == "" {
		s.Status = "enabled"
	}
	rels := s.Relations
	if rels == nil {
		rels = []string{}
	}
	payload, err := json.Marshal(rels)
	if err != nil {
		return err
	}
	_, err = r.conn(tx).ExecContext(ctx, `INSERT INTO image_styles(id,label,status,relations_json,created_at) VALUES (?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET label=excluded.label, status=excluded.status, relations_json=excluded.relations_json`,
		s.ID, s.Label, s.Status, string(payload), s.CreatedAt)
	return err
}

func (r Repo) GetStyle(ctx context.Context, id string) (domain.ImageStyle, error) {
	return scanStyle(r.DB.QueryRowContext(ctx, `SELECT `+styleColumns+` FROM image_styles WHERE id=?`, id))
}

func (r Repo) ListStyles(ctx context.Context) ([]domain.ImageStyle, error) {
	return r.queryStyles(ctx, `SELECT `+styleColumns+` FROM image_styles ORDER BY id`)
}

// LoadStyles returns the enabled styles among ids, keyed by id. Unknown or
// disabled ids are absent from the result.
func (r Repo) LoadStyles(ctx context.Context, ids []string) (map[string]domain.ImageStyle, error) {
	out := make(map[string]domain.ImageStyle, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM image_styles WHERE status='enabled' AND id IN (%s)`, styleColumns, strings.Join(placeholders, ","))
	styles, err := r.queryStyles(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, s := range styles {
		out[s.ID] = s
	}
	return out, nil
}

func (r Repo) DeleteStyle(ctx context.Context, tx *sql.Tx, id string) error {
	c := r.conn(tx)
	res, err := c.ExecContext(ctx, `DELETE FROM image_styles WHERE id=?`, id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	_, err = c.ExecContext(ctx, `DELETE FROM consumer_image_styles WHERE style_id=?`, id)
	return err
}

func (r Repo) queryStyles(ctx context.Context, query string, args ...any) ([]domain.ImageStyle, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var styles []domain.ImageStyle
	for rows.Next() {
		s, err := scanStyle(rows)
		if err != nil {
			return nil, err
		}
		styles = append(styles, s)
	}
	return styles, rows.Err()
}
