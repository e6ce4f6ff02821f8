package repo

import (
	"context"
	"database/sql"
	"errors"

	"stylelinks/internal/domain"
)

const fileColumns = `fid,uuid,uri,filename,filemime,filesize,width,height,owner_id,status,created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (domain.File, error) {
	var f domain.File
	var width, height sql.NullInt64
	err := row.Scan(&f.FID, &f.ID, &f.URI, &f.Filename, &f.MIME, &f.Size, &width, &height, &f.OwnerID, &f.Status, &f.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.File{}, ErrNotFound
	}
	if err != nil {
		return domain.File{}, err
	}
	f.Width = intPtr(width)
	f.Height = intPtr(height)
	return f, nil
}

// InsertFile stores f and returns it with its storage key set.
func (r Repo) InsertFile(ctx context.Context, tx *sql.Tx, f domain.File) (domain.File, error) {
	res, err := r.conn(tx).ExecContext(ctx, `INSERT INTO files(uuid,uri,filename,filemime,filesize,width,height,owner_id,status,created_at) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.URI, f.Filename, f.MIME, f.Size, nullableIntPtr(f.Width), nullableIntPtr(f.Height), f.OwnerID, f.Status, f.CreatedAt)
	if err != nil {
		return domain.File{}, err
	}
	if f.FID, err = res.LastInsertId(); err != nil {
		return domain.File{}, err
	}
	return f, nil
}

// GetFileByUUID loads a file by its public UUID.
func (r Repo) GetFileByUUID(ctx context.Context, uuid string) (domain.File, error) {
	return scanFile(r.DB.QueryRowContext(ctx, `SELECT `+fileColumns+` FROM files WHERE uuid=?`, uuid))
}

// ListFiles returns files newest first, optionally filtered by owner.
func (r Repo) ListFiles(ctx context.Context, ownerID string, limit int) ([]domain.File, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + fileColumns + ` FROM files`
	var args []any
	if ownerID != "" {
		query += ` WHERE owner_id=?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY fid DESC LIMIT ?`
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var files []domain.File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// DeleteFile removes a file. Articles keep their reference.
func (r Repo) DeleteFile(ctx context.Context, tx *sql.Tx, uuid string) error {
	res, err := r.conn(tx).ExecContext(ctx, `DELETE FROM files WHERE uuid=?`, uuid)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
