package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"stylelinks/internal/domain"
	"stylelinks/internal/events"
	"stylelinks/internal/repo"
)

var machineName = regexp.MustCompile(`^[a-z0-9_]+$`)

type StyleSaveOptions struct {
	ID        string
	Label     string
	Disabled  bool
	Relations []string
	ActorID   string
}

// SaveStyle creates or replaces an image style. The creation time of an
// existing style is kept.
func (e Engine) SaveStyle(ctx context.Context, opts StyleSaveOptions) (domain.ImageStyle, error) {
	id := strings.TrimSpace(opts.ID)
	if !machineName.MatchString(id) {
		return domain.ImageStyle{}, fmt.Errorf("%w: style id %q must match [a-z0-9_]+", ErrInvalid, opts.ID)
	}
	for _, rel := range opts.Relations {
		if strings.TrimSpace(rel) == "" {
			return domain.ImageStyle{}, fmt.Errorf("%w: empty relation", ErrInvalid)
		}
	}
	s := domain.ImageStyle{
		ID:        id,
		Label:     opts.Label,
		Status:    "enabled",
		Relations: opts.Relations,
		CreatedAt: e.timestamp(),
	}
	if s.Label == "" {
		s.Label = id
	}
	if opts.Disabled {
		s.Status = "disabled"
	}
	if s.Relations == nil {
		s.Relations = []string{}
	}
	existing, err := e.Repo.GetStyle(ctx, id)
	switch {
	case err == nil:
		s.CreatedAt = existing.CreatedAt
	case !errors.Is(err, repo.ErrNotFound):
		return domain.ImageStyle{}, err
	}
	err = e.withEvent(ctx, events.StyleSaved, "image_style", s.ID, opts.ActorID, events.EventPayload{"status": s.Status}, func(tx *sql.Tx) error {
		return e.Repo.UpsertStyle(ctx, tx, s)
	})
	if err != nil {
		return domain.ImageStyle{}, fmt.Errorf("save style: %w", err)
	}
	return s, nil
}

// DeleteStyle removes a style and its consumer grants.
func (e Engine) DeleteStyle(ctx context.Context, id, actorID string) error {
	return e.withEvent(ctx, events.StyleDeleted, "image_style", id, actorID, nil, func(tx *sql.Tx) error {
		return e.Repo.DeleteStyle(ctx, tx, id)
	})
}

func (e Engine) GetStyle(ctx context.Context, id string) (domain.ImageStyle, error) {
	return e.Repo.GetStyle(ctx, id)
}

func (e Engine) ListStyles(ctx context.Context) ([]domain.ImageStyle, error) {
	styles, err := e.Repo.ListStyles(ctx)
	if styles == nil && err == nil {
		styles = []domain.ImageStyle{}
	}
	return styles, err
}

// StyleOptions lists enabled styles as {id: label}, the choices offered for
// a field's custom selection.
func (e Engine) StyleOptions(ctx context.Context) (map[string]string, error) {
	styles, err := e.Repo.ListStyles(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(styles))
	for _, s := range styles {
		if s.Status == "enabled" {
			out[s.ID] = s.Label
		}
	}
	return out, nil
}
