package engine

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"stylelinks/internal/access"
	"stylelinks/internal/catalog"
	"stylelinks/internal/config"
	"stylelinks/internal/consumer"
	"stylelinks/internal/domain"
	"stylelinks/internal/enhancer"
	"stylelinks/internal/events"
	"stylelinks/internal/repo"
)

// ErrInvalid wraps input validation failures.
var ErrInvalid = errors.New("invalid input")

type Engine struct {
	DB        *sql.DB
	Repo      repo.Repo
	Events    events.Writer
	Config    *config.Config
	RBAC      access.Service
	Catalog   catalog.Catalog
	Consumers consumer.Negotiator
	Logger    *slog.Logger
	Now       func() time.Time
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := repo.Repo{DB: db}
	return Engine{
		DB:        db,
		Repo:      r,
		Events:    events.Writer{DB: db},
		Config:    cfg,
		RBAC:      access.Service{Roles: r},
		Catalog:   catalog.New(r, cfg.Server.PublicBaseURL, []byte(cfg.Catalog.TokenKey), cfg.Relations()),
		Consumers: consumer.Negotiator{Store: r, Logger: logger},
		Logger:    logger,
		Now:       time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) timestamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Enhancer wires the image styles enhancer to this engine's storage.
func (e Engine) Enhancer() enhancer.Enhancer {
	return enhancer.New(
		e.Catalog,
		fileEntities{Repo: e.Repo},
		access.FileAccess{Perms: e.RBAC},
		e.logger(),
	)
}

// fileEntities resolves file references for the enhancer.
type fileEntities struct {
	Repo repo.Repo
}

func (f fileEntities) FindByUUID(ctx context.Context, entityType, uuid string) (enhancer.Entity, error) {
	if entityType != enhancer.FileEntityType {
		return nil, nil
	}
	file, err := f.Repo.GetFileByUUID(ctx, uuid)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// withEvent runs fn and appends one event in the same transaction.
func (e Engine) withEvent(ctx context.Context, evtType, kind, id, actorID string, payload events.EventPayload, fn func(tx *sql.Tx) error) error {
	return e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		if actorID != "" {
			if err := e.Repo.EnsureActor(ctx, tx, actorID, e.timestamp()); err != nil {
				return err
			}
		}
		if err := fn(tx); err != nil {
			return err
		}
		return e.Events.Append(ctx, tx, evtType, kind, id, actorID, payload)
	})
}

// WhoAmI returns the actor's roles and resolved permissions.
func (e Engine) WhoAmI(ctx context.Context, actorID string) (domain.ActorProfile, error) {
	roles, err := e.RBAC.ActorRoles(ctx, actorID)
	if err != nil {
		return domain.ActorProfile{}, err
	}
	perms, err := e.RBAC.ActorPermissions(ctx, actorID)
	if err != nil {
		return domain.ActorProfile{}, err
	}
	if roles == nil {
		roles = []string{}
	}
	if perms == nil {
		perms = []string{}
	}
	return domain.ActorProfile{ActorID: actorID, Roles: roles, Permissions: perms}, nil
}

func (e Engine) LatestEvents(ctx context.Context, limit int, evtType, kind, id string) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, limit, evtType, kind, id)
}
