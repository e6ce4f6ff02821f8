package access

import (
	"context"

	"stylelinks/internal/domain"
	"stylelinks/internal/enhancer"
)

// PermissionChecker answers stored permission lookups.
type PermissionChecker interface {
	ActorHasPermission(ctx context.Context, actorID, perm string) (bool, error)
}

// FileAccess decides file view access:
//   - temporary files are visible to their owner only;
//   - public:// files are visible to everyone;
//   - any other scheme needs ownership or files.view.any.
type FileAccess struct {
	Perms PermissionChecker
}

var _ enhancer.AccessChecker = FileAccess{}

func (a FileAccess) CanView(ctx context.Context, entity enhancer.Entity, caller enhancer.Caller) (bool, error) {
	file, ok := entity.(domain.File)
	if !ok {
		return false, nil
	}
	owner := !caller.Anonymous() && caller.ID == file.OwnerID
	if file.Status == "temporary" {
		return owner, nil
	}
	if file.Scheme() == "public" || owner {
		return true, nil
	}
	if caller.HasPermission(PermFilesViewAny) {
		return true, nil
	}
	if caller.Anonymous() || a.Perms == nil {
		return false, nil
	}
	return a.Perms.ActorHasPermission(ctx, caller.ID, PermFilesViewAny)
}
