package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"stylelinks/internal/config"
	"stylelinks/internal/db"
	"stylelinks/internal/engine"
	"stylelinks/internal/migrate"
)

// Open loads the workspace config, opens and migrates the database and seeds
// it on first use. The caller closes the returned *sql.DB.
func Open(ctx context.Context, workspace, actorID string, logger *slog.Logger) (engine.Engine, *sql.DB, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return engine.Engine{}, nil, err
	}
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return engine.Engine{}, nil, fmt.Errorf("open db: %w", err)
	}
	if err := migrate.Migrate(ctx, conn); err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	e := engine.New(conn, cfg, logger)
	if err := Seed(ctx, e, actorID); err != nil {
		conn.Close()
		return engine.Engine{}, nil, err
	}
	return e, conn, nil
}

// Seed applies the engine's config when no style exists yet and makes actorID
// admin when nobody holds that role.
func Seed(ctx context.Context, e engine.Engine, actorID string) error {
	styles, err := e.Repo.ListStyles(ctx)
	if err != nil {
		return err
	}
	if len(styles) == 0 {
		if err := e.ApplyConfig(ctx, e.Config, actorID); err != nil {
			return fmt.Errorf("seed config: %w", err)
		}
		e.Logger.InfoContext(ctx, "seeded workspace from config", "styles", len(e.Config.Styles), "consumers", len(e.Config.Consumers))
	}
	if actorID == "" {
		return nil
	}
	if _, ok := e.Config.RBAC.Roles["admin"]; !ok {
		return nil
	}
	admins, err := e.Repo.RoleHolders(ctx, "admin")
	if err != nil {
		return err
	}
	if len(admins) > 0 {
		return nil
	}
	if err := e.BootstrapRole(ctx, actorID, "admin"); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	return nil
}
