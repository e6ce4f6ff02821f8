package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"stylelinks/internal/domain"
)

// UpsertConsumer creates or updates a consumer. Marking it default clears the
// flag on every other consumer.
func (r Repo) UpsertConsumer(ctx context.Context, tx *sql.Tx, c domain.Consumer) error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("consumer id required")
	}
	conn := r.conn(tx)
	if c.IsDefault {
		if _, err := conn.ExecContext(ctx, `UPDATE consumers SET is_default=0 WHERE id<>?`, c.ID); err != nil {
			return err
		}
	}
	_, err := conn.ExecContext(ctx, `INSERT INTO consumers(id,label,is_default,created_at) VALUES (?,?,?,?)
ON CONFLICT(id) DO UPDATE SET label=excluded.label, is_default=excluded.is_default`,
		c.ID, c.Label, boolInt(c.IsDefault), c.CreatedAt)
	return err
}

// SetConsumerImageStyles replaces the styles granted to a consumer, keeping order.
func (r Repo) SetConsumerImageStyles(ctx context.Context, tx *sql.Tx, consumerID string, styleIDs []string) error {
	conn := r.conn(tx)
	if _, err := conn.ExecContext(ctx, `DELETE FROM consumer_image_styles WHERE consumer_id=?`, consumerID); err != nil {
		return err
	}
	for i, id := range styleIDs {
		if _, err := conn.ExecContext(ctx, `INSERT OR IGNORE INTO consumer_image_styles(consumer_id,style_id,weight) VALUES (?,?,?)`, consumerID, id, i); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) GetConsumer(ctx context.Context, id string) (domain.Consumer, error) {
	return r.scanConsumer(ctx, r.DB.QueryRowContext(ctx, `SELECT id,label,is_default,created_at FROM consumers WHERE id=?`, id))
}

// DefaultConsumer returns the consumer used when a request names none.
func (r Repo) DefaultConsumer(ctx context.Context) (domain.Consumer, error) {
	return r.scanConsumer(ctx, r.DB.QueryRowContext(ctx, `SELECT id,label,is_default,created_at FROM consumers WHERE is_default=1 LIMIT 1`))
}

func (r Repo) ListConsumers(ctx context.Context) ([]domain.Consumer, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,label,is_default,created_at FROM consumers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	var consumers []domain.Consumer
	for rows.Next() {
		var c domain.Consumer
		var isDefault int
		if err := rows.Scan(&c.ID, &c.Label, &isDefault, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		c.IsDefault = isDefault == 1
		consumers = append(consumers, c)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()
	for i := range consumers {
		styles, err := r.ConsumerImageStyles(ctx, consumers[i].ID)
		if err != nil {
			return nil, err
		}
		consumers[i].ImageStyles = styles
	}
	return consumers, nil
}

// ConsumerImageStyles returns the style ids granted to a consumer in grant order.
func (r Repo) ConsumerImageStyles(ctx context.Context, consumerID string) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT style_id FROM consumer_image_styles WHERE consumer_id=? ORDER BY weight, style_id`, consumerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	styles := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		styles = append(styles, id)
	}
	return styles, rows.Err()
}

func (r Repo) scanConsumer(ctx context.Context, row *sql.Row) (domain.Consumer, error) {
	var c domain.Consumer
	var isDefault int
	err := row.Scan(&c.ID, &c.Label, &isDefault, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Consumer{}, ErrNotFound
	}
	if err != nil {
		return domain.Consumer{}, err
	}
	c.IsDefault = isDefault == 1
	styles, err := r.ConsumerImageStyles(ctx, c.ID)
	if err != nil {
		return domain.Consumer{}, err
	}
	c.ImageStyles = styles
	return c, nil
}
