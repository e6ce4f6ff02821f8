package repo

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"strings"

	"stylelinks/internal/domain"
)

const apiKeyColumns = `id, actor_id, COALESCE(name,''), key_hash, created_at`

// HashAPIKey returns the hex SHA-256 of a plaintext key. Only hashes are stored.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(key)))
	return hex.EncodeToString(sum[:])
}

func (r Repo) InsertAPIKey(ctx context.Context, tx *sql.Tx, key domain.APIKey) error {
	if key.ID == "" || key.ActorID == "" || key.KeyHash == "" || key.CreatedAt == "" {
		return errors.New("api key requires id, actor, hash and creation time")
	}
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO api_keys(id, actor_id, name, key_hash, created_at) VALUES (?,?,?,?,?)`,
		key.ID, key.ActorID, nullable(key.Name), key.KeyHash, key.CreatedAt)
	return err
}

func (r Repo) GetAPIKeyByHash(ctx context.Context, hash string) (domain.APIKey, error) {
	keys, err := r.queryAPIKeys(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash=? LIMIT 1`, hash)
	if err != nil {
		return domain.APIKey{}, err
	}
	if len(keys) == 0 {
		return domain.APIKey{}, ErrNotFound
	}
	return keys[0], nil
}

// ListAPIKeys returns the keys of actorID, newest first.
func (r Repo) ListAPIKeys(ctx context.Context, actorID string) ([]domain.APIKey, error) {
	return r.queryAPIKeys(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE actor_id=? ORDER BY created_at DESC, id`, actorID)
}

// DeleteAPIKey revokes key id if actorID owns it.
func (r Repo) DeleteAPIKey(ctx context.Context, actorID, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM api_keys WHERE id=? AND actor_id=?`, id, actorID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) queryAPIKeys(ctx context.Context, query string, args ...any) ([]domain.APIKey, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var keys []domain.APIKey
	for rows.Next() {
		var key domain.APIKey
		if err := rows.Scan(&key.ID, &key.ActorID, &key.Name, &key.KeyHash, &key.CreatedAt); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
