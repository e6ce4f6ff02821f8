package repo

import (
	"context"
	"database/sql"
	"errors"

	"stylelinks/internal/domain"
)

const articleColumns = `uuid,title,COALESCE(body,''),author_id,image_uuid,image_alt,image_title,created_at`

func scanArticle(row rowScanner) (domain.Article, error) {
	var a domain.Article
	var imageUUID, imageAlt, imageTitle sql.NullString
	err := row.Scan(&a.ID, &a.Title, &a.Body, &a.AuthorID, &imageUUID, &imageAlt, &imageTitle, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Article{}, ErrNotFound
	}
	if err != nil {
		return domain.Article{}, err
	}
	if imageUUID.Valid && imageUUID.String != "" {
		a.Image = &domain.ImageField{
			FileID: imageUUID.String,
			Alt:    stringPtr(imageAlt),
			Title:  stringPtr(imageTitle),
		}
	}
	return a, nil
}

func (r Repo) InsertArticle(ctx context.Context, tx *sql.Tx, a domain.Article) error {
	var imageUUID string
	var alt, title *string
	if a.Image != nil {
		imageUUID, alt, title = a.Image.FileID, a.Image.Alt, a.Image.Title
	}
	_, err := r.conn(tx).ExecContext(ctx, `INSERT INTO articles(uuid,title,body,author_id,image_uuid,image_alt,image_title,created_at) VALUES (?,?,?,?,?,?,?,?)`,
		a.ID, a.Title, nullable(a.Body), a.AuthorID, nullable(imageUUID), nullableStringPtr(alt), nullableStringPtr(title), a.CreatedAt)
	return err
}

func (r Repo) GetArticle(ctx context.Context, uuid string) (domain.Article, error) {
	return scanArticle(r.DB.QueryRowContext(ctx, `SELECT `+articleColumns+` FROM articles WHERE uuid=?`, uuid))
}

// ListArticles returns articles newest first.
func (r Repo) ListArticles(ctx context.Context, limit int) ([]domain.Article, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT `+articleColumns+` FROM articles ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var articles []domain.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
