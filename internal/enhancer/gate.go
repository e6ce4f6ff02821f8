package enhancer

import (
	"context"
	"errors"
	"fmt"
)

// FileEntityType is the entity type image field references resolve to.
const FileEntityType = "file"

// ErrSkip marks a reference that must not be enhanced. The reason is kept for
// logs only; callers see the original value either way.
var ErrSkip = errors.New("enhancement skipped")

// Entity is any stored entity addressable by a stable UUID.
type Entity interface {
	EntityType() string
	UUID() string
}

// File is the capability an entity needs to back derivative links.
type File interface {
	Entity
	FileURI() string
	IsImage() bool
}

// Caller identifies who the response is being built for.
type Caller struct {
	ID          string
	Permissions []string
}

// Anonymous reports whether the caller carries no identity.
func (c Caller) Anonymous() bool { return c.ID == "" }

// HasPermission reports whether the caller holds perm directly.
func (c Caller) HasPermission(perm string) bool {
	for _, p := range c.Permissions {
		if p == perm {
			return true
		}
	}
	return false
}

// EntityRepository loads entities by UUID. A missing entity may be reported
// as (nil, nil) or as an error; both are treated the same.
type EntityRepository interface {
	FindByUUID(ctx context.Context, entityType, uuid string) (Entity, error)
}

// AccessChecker decides whether caller may view entity.
type AccessChecker interface {
	CanView(ctx context.Context, entity Entity, caller Caller) (bool, error)
}

// ImageResource is a viewable image file. Only Gate produces one.
type ImageResource struct {
	uuid string
	uri  string
}

func (r ImageResource) UUID() string { return r.uuid }
func (r ImageResource) URI() string  { return r.uri }

// Gate turns an opaque file reference into a viewable ImageResource.
type Gate struct {
	Entities EntityRepository
	Access   AccessChecker
}

// Resolve returns an error wrapping ErrSkip when the reference is missing,
// not a file, not an image, or not viewable by caller.
func (g Gate) Resolve(ctx context.Context, reference string, caller Caller) (ImageResource, error) {
	if reference == "" {
		return ImageResource{}, fmt.Errorf("%w: empty reference", ErrSkip)
	}
	entity, err := g.Entities.FindByUUID(ctx, FileEntityType, reference)
	if err != nil {
		return ImageResource{}, fmt.Errorf("%w: load %s: %v", ErrSkip, reference, err)
	}
	if entity == nil {
		return ImageResource{}, fmt.Errorf("%w: %s not found", ErrSkip, reference)
	}
	file, ok := entity.(File)
	if !ok || entity.EntityType() != FileEntityType {
		return ImageResource{}, fmt.Errorf("%w: %s is not a file", ErrSkip, reference)
	}
	if !file.IsImage() {
		return ImageResource{}, fmt.Errorf("%w: %s is not an image", ErrSkip, reference)
	}
	allowed, err := g.Access.CanView(ctx, entity, caller)
	if err != nil {
		return ImageResource{}, fmt.Errorf("%w: access check %s: %v", ErrSkip, reference, err)
	}
	if !allowed {
		return ImageResource{}, fmt.Errorf("%w: %s not viewable", ErrSkip, reference)
	}
	return ImageResource{uuid: file.UUID(), uri: file.FileURI()}, nil
}
