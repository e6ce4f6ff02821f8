package engine

import (
	"context"
	"database/sql"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"

	"stylelinks/internal/access"
	"stylelinks/internal/domain"
	"stylelinks/internal/enhancer"
	"stylelinks/internal/events"
	"stylelinks/internal/repo"
)

type FileCreateOptions struct {
	URI      string
	Filename string
	MIME     string
	Size     int64
	Width    *int
	Height   *int
	Status   string
	ActorID  string
}

var fileSchemes = map[string]struct{}{"public": {}, "private": {}}

// CreateFile registers file metadata. The owner is the creating actor.
func (e Engine) CreateFile(ctx context.Context, opts FileCreateOptions) (domain.File, error) {
	uri := strings.TrimSpace(opts.URI)
	i := strings.Index(uri, "://")
	if i <= 0 || i+3 == len(uri) {
		return domain.File{}, fmt.Errorf("%w: uri must look like scheme://path", ErrInvalid)
	}
	if _, ok := fileSchemes[uri[:i]]; !ok {
		return domain.File{}, fmt.Errorf("%w: unsupported uri scheme %q", ErrInvalid, uri[:i])
	}
	if opts.ActorID == "" {
		return domain.File{}, fmt.Errorf("%w: owner required", ErrInvalid)
	}
	status := opts.Status
	switch status {
	case "":
		status = "permanent"
	case "permanent", "temporary":
	default:
		return domain.File{}, fmt.Errorf("%w: status must be permanent or temporary", ErrInvalid)
	}
	filename := opts.Filename
	if filename == "" {
		filename = path.Base(uri[i+3:])
	}
	f := domain.File{
		ID:        uuid.NewString(),
		URI:       uri,
		Filename:  filename,
		MIME:      strings.ToLower(strings.TrimSpace(opts.MIME)),
		Size:      opts.Size,
		Width:     opts.Width,
		Height:    opts.Height,
		OwnerID:   opts.ActorID,
		Status:    status,
		CreatedAt: e.timestamp(),
	}
	err := e.withEvent(ctx, events.FileCreated, "file", f.ID, opts.ActorID, events.EventPayload{"uri": f.URI, "mime": f.MIME}, func(tx *sql.Tx) error {
		stored, err := e.Repo.InsertFile(ctx, tx, f)
		if err != nil {
			return fmt.Errorf("insert file: %w", err)
		}
		f = stored
		return nil
	})
	if err != nil {
		return domain.File{}, err
	}
	return f, nil
}

func (e Engine) GetFile(ctx context.Context, id string) (domain.File, error) {
	return e.Repo.GetFileByUUID(ctx, id)
}

func (e Engine) ListFiles(ctx context.Context, ownerID string, limit int) ([]domain.File, error) {
	return e.Repo.ListFiles(ctx, ownerID, limit)
}

// ViewFile returns the file when caller may view it.
func (e Engine) ViewFile(ctx context.Context, id string, caller enhancer.Caller) (domain.File, error) {
	f, err := e.Repo.GetFileByUUID(ctx, id)
	if err != nil {
		return domain.File{}, err
	}
	ok, err := access.FileAccess{Perms: e.RBAC}.CanView(ctx, f, caller)
	if err != nil {
		return domain.File{}, err
	}
	if !ok {
		// Indistinguishable from a missing file.
		return domain.File{}, repo.ErrNotFound
	}
	return f, nil
}

// DeleteFile removes a file owned by actorID. Articles referencing it keep the
// dangling reference and are served without derivative links.
// Without force, files actorID cannot view are reported as not found.
func (e Engine) DeleteFile(ctx context.Context, id, actorID string, force bool) error {
	var f domain.File
	var err error
	if force {
		f, err = e.Repo.GetFileByUUID(ctx, id)
	} else {
		f, err = e.ViewFile(ctx, id, enhancer.Caller{ID: actorID})
	}
	if err != nil {
		return err
	}
	if f.OwnerID != actorID && !force {
		return access.ForbiddenError{Permission: access.PermFilesDelete}
	}
	return e.withEvent(ctx, events.FileDeleted, "file", id, actorID, events.EventPayload{"uri": f.URI}, func(tx *sql.Tx) error {
		return e.Repo.DeleteFile(ctx, tx, id)
	})
}
