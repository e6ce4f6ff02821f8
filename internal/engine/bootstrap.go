package engine

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"stylelinks/internal/access"
	"stylelinks/internal/config"
	"stylelinks/internal/domain"
	"stylelinks/internal/events"
	"stylelinks/internal/repo"
)

// ApplyConfig writes the styles, consumers, field enhancers and roles of cfg
// in one transaction. Entities absent from cfg are left alone.
func (e Engine) ApplyConfig(ctx context.Context, cfg *config.Config, actorID string) error {
	if cfg == nil {
		return fmt.Errorf("%w: config required", ErrInvalid)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	now := e.timestamp()
	payload := events.EventPayload{
		"styles":    len(cfg.Styles),
		"consumers": len(cfg.Consumers),
		"fields":    len(cfg.Fields),
		"roles":     len(cfg.RBAC.Roles),
	}
	return e.withEvent(ctx, events.ConfigApplied, "config", "", actorID, payload, func(tx *sql.Tx) error {
		for _, s := range cfg.Styles {
			style := domain.ImageStyle{ID: s.ID, Label: s.Label, Status: "enabled", Relations: s.Relations, CreatedAt: now}
			if s.Disabled {
				style.Status = "disabled"
			}
			if style.Label == "" {
				style.Label = s.ID
			}
			if err := e.Repo.UpsertStyle(ctx, tx, style); err != nil {
				return fmt.Errorf("style %s: %w", s.ID, err)
			}
		}
		for _, c := range cfg.Consumers {
			cons := domain.Consumer{ID: c.ID, Label: c.Label, IsDefault: c.Default, CreatedAt: now}
			if cons.Label == "" {
				cons.Label = c.ID
			}
			if err := e.Repo.UpsertConsumer(ctx, tx, cons); err != nil {
				return fmt.Errorf("consumer %s: %w", c.ID, err)
			}
			if err := e.Repo.SetConsumerImageStyles(ctx, tx, c.ID, c.ImageStyles); err != nil {
				return fmt.Errorf("consumer %s styles: %w", c.ID, err)
			}
		}
		for _, f := range cfg.Fields {
			raw, err := marshalSettings(f.Settings)
			if err != nil {
				return err
			}
			fe := domain.FieldEnhancer{Resource: f.Resource, Field: f.Field, Enhancer: f.Enhancer, Settings: raw, UpdatedAt: now}
			if err := e.Repo.UpsertFieldEnhancer(ctx, tx, fe); err != nil {
				return fmt.Errorf("field %s.%s: %w", f.Resource, f.Field, err)
			}
		}
		roleIDs := make([]string, 0, len(cfg.RBAC.Roles))
		for id := range cfg.RBAC.Roles {
			roleIDs = append(roleIDs, id)
		}
		sort.Strings(roleIDs)
		for _, id := range roleIDs {
			role := cfg.RBAC.Roles[id]
			if err := e.Repo.InsertRole(ctx, tx, id, role.Description); err != nil {
				return fmt.Errorf("role %s: %w", id, err)
			}
			for _, perm := range role.Permissions {
				if err := e.Repo.InsertPermission(ctx, tx, perm, ""); err != nil {
					return err
				}
				if err := e.Repo.AddRolePermission(ctx, tx, id, perm); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// GrantRole assigns roleID to target. The caller needs rbac.manage.
func (e Engine) GrantRole(ctx context.Context, actorID, targetID, roleID string) error {
	if err := e.RBAC.Require(ctx, actorID, access.PermRBACManage); err != nil {
		return err
	}
	return e.assignRole(ctx, targetID, roleID)
}

// BootstrapRole assigns roleID without a permission check. Used by the CLI
// and the default role of new actors.
func (e Engine) BootstrapRole(ctx context.Context, targetID, roleID string) error {
	return e.assignRole(ctx, targetID, roleID)
}

func (e Engine) assignRole(ctx context.Context, targetID, roleID string) error {
	if strings.TrimSpace(targetID) == "" || strings.TrimSpace(roleID) == "" {
		return fmt.Errorf("%w: actor and role required", ErrInvalid)
	}
	return e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.EnsureActor(ctx, tx, targetID, e.timestamp()); err != nil {
			return err
		}
		return e.Repo.AssignRole(ctx, tx, targetID, roleID)
	})
}

func (e Engine) RevokeRole(ctx context.Context, actorID, targetID, roleID string) error {
	if err := e.RBAC.Require(ctx, actorID, access.PermRBACManage); err != nil {
		return err
	}
	return e.Repo.RevokeRole(ctx, nil, targetID, roleID)
}

// EnsureDefaultRole gives an actor without roles the configured default role.
func (e Engine) EnsureDefaultRole(ctx context.Context, actorID string) error {
	if e.Config == nil || e.Config.RBAC.DefaultRole == "" || actorID == "" {
		return nil
	}
	roles, err := e.RBAC.ActorRoles(ctx, actorID)
	if err != nil || len(roles) > 0 {
		return err
	}
	return e.assignRole(ctx, actorID, e.Config.RBAC.DefaultRole)
}

// CreateAPIKey mints a key for actorID. The plaintext is only returned here.
func (e Engine) CreateAPIKey(ctx context.Context, actorID, name string) (domain.APIKey, string, error) {
	if actorID == "" {
		return domain.APIKey{}, "", fmt.Errorf("%w: actor required", ErrInvalid)
	}
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return domain.APIKey{}, "", err
	}
	plain := "sl_" + hex.EncodeToString(buf)
	key := domain.APIKey{
		ID:        uuid.NewString(),
		ActorID:   actorID,
		Name:      name,
		KeyHash:   repo.HashAPIKey(plain),
		CreatedAt: e.timestamp(),
	}
	err := e.Repo.WithTx(ctx, func(tx *sql.Tx) error {
		if err := e.Repo.EnsureActor(ctx, tx, actorID, key.CreatedAt); err != nil {
			return err
		}
		return e.Repo.InsertAPIKey(ctx, tx, key)
	})
	if err != nil {
		return domain.APIKey{}, "", fmt.Errorf("create api key: %w", err)
	}
	return key, plain, nil
}
