package access

import (
	"context"
	"fmt"
)

// Permission ids checked by the API.
const (
	PermStylesRead      = "styles.read"
	PermStylesManage    = "styles.manage"
	PermConsumersRead   = "consumers.read"
	PermConsumersManage = "consumers.manage"
	PermFieldsRead      = "fields.read"
	PermFieldsManage    = "fields.manage"
	PermFilesRead       = "files.read"
	PermFilesCreate     = "files.create"
	PermFilesViewAny    = "files.view.any"
	PermFilesDelete     = "files.delete"
	PermArticlesRead    = "articles.read"
	PermArticlesCreate  = "articles.create"
	PermEventsRead      = "events.read"
	PermRBACManage      = "rbac.manage"
)

// ForbiddenError indicates missing permission.
type ForbiddenError struct {
	Permission string
}

func (e ForbiddenError) Error() string {
	return fmt.Sprintf("permission %s required", e.Permission)
}

// RoleStore is the slice of the repository RBAC needs.
type RoleStore interface {
	ActorRoles(ctx context.Context, actorID string) ([]string, error)
	RolePermissions(ctx context.Context, roleIDs []string) ([]string, error)
}

// Service resolves actor permissions from stored role assignments.
type Service struct {
	Roles RoleStore
}

func (s Service) ActorRoles(ctx context.Context, actorID string) ([]string, error) {
	return s.Roles.ActorRoles(ctx, actorID)
}

func (s Service) ActorPermissions(ctx context.Context, actorID string) ([]string, error) {
	roles, err := s.Roles.ActorRoles(ctx, actorID)
	if err != nil {
		return nil, err
	}
	return s.Roles.RolePermissions(ctx, roles)
}

func (s Service) ActorHasPermission(ctx context.Context, actorID, perm string) (bool, error) {
	perms, err := s.ActorPermissions(ctx, actorID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p == perm {
			return true, nil
		}
	}
	return false, nil
}

// Require returns ForbiddenError unless actorID holds perm.
func (s Service) Require(ctx context.Context, actorID, perm string) error {
	ok, err := s.ActorHasPermission(ctx, actorID, perm)
	if err != nil {
		return err
	}
	if !ok {
		return ForbiddenError{Permission: perm}
	}
	return nil
}
