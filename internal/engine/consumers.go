package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"stylelinks/internal/domain"
	"stylelinks/internal/events"
	"stylelinks/internal/repo"
)

type ConsumerSaveOptions struct {
	ID      string
	Label   string
	Default bool
	// ImageStyles replaces the granted styles when non-nil.
	ImageStyles []string
	ActorID     string
}

func (e Engine) SaveConsumer(ctx context.Context, opts ConsumerSaveOptions) (domain.Consumer, error) {
	id := strings.TrimSpace(opts.ID)
	if id == "" {
		return domain.Consumer{}, fmt.Errorf("%w: consumer id required", ErrInvalid)
	}
	if opts.ImageStyles != nil {
		if err := e.ensureStylesExist(ctx, opts.ImageStyles); err != nil {
			return domain.Consumer{}, err
		}
	}
	c := domain.Consumer{ID: id, Label: opts.Label, IsDefault: opts.Default, CreatedAt: e.timestamp()}
	if c.Label == "" {
		c.Label = id
	}
	existing, err := e.Repo.GetConsumer(ctx, id)
	switch {
	case err == nil:
		c.CreatedAt = existing.CreatedAt
	case !errors.Is(err, repo.ErrNotFound):
		return domain.Consumer{}, err
	}
	err = e.withEvent(ctx, events.ConsumerSaved, "consumer", id, opts.ActorID, events.EventPayload{"default": c.IsDefault}, func(tx *sql.Tx) error {
		if err := e.Repo.UpsertConsumer(ctx, tx, c); err != nil {
			return err
		}
		if opts.ImageStyles == nil {
			return nil
		}
		return e.Repo.SetConsumerImageStyles(ctx, tx, id, opts.ImageStyles)
	})
	if err != nil {
		return domain.Consumer{}, fmt.Errorf("save consumer: %w", err)
	}
	return e.Repo.GetConsumer(ctx, id)
}

// SetConsumerImageStyles replaces the styles granted to a consumer.
func (e Engine) SetConsumerImageStyles(ctx context.Context, consumerID string, styleIDs []string, actorID string) (domain.Consumer, error) {
	if _, err := e.Repo.GetConsumer(ctx, consumerID); err != nil {
		return domain.Consumer{}, err
	}
	if err := e.ensureStylesExist(ctx, styleIDs); err != nil {
		return domain.Consumer{}, err
	}
	err := e.withEvent(ctx, events.ConsumerStylesSet, "consumer", consumerID, actorID, events.EventPayload{"image_styles": styleIDs}, func(tx *sql.Tx) error {
		return e.Repo.SetConsumerImageStyles(ctx, tx, consumerID, styleIDs)
	})
	if err != nil {
		return domain.Consumer{}, err
	}
	return e.Repo.GetConsumer(ctx, consumerID)
}

func (e Engine) ensureStylesExist(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if _, err := e.Repo.GetStyle(ctx, id); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return fmt.Errorf("%w: unknown image style %s", ErrInvalid, id)
			}
			return err
		}
	}
	return nil
}

func (e Engine) GetConsumer(ctx context.Context, id string) (domain.Consumer, error) {
	return e.Repo.GetConsumer(ctx, id)
}

func (e Engine) ListConsumers(ctx context.Context) ([]domain.Consumer, error) {
	consumers, err := e.Repo.ListConsumers(ctx)
	if consumers == nil && err == nil {
		consumers = []domain.Consumer{}
	}
	return consumers, err
}
