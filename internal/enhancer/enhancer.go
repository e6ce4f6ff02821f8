// Package enhancer adds consumer-scoped image style links to serialized image
// fields. Every failure degrades to returning the field value untouched.
package enhancer

import (
	"context"
	"log/slog"
)

// Enhancer composes style resolution, the image gate, link building and the
// payload merge. It holds no mutable state and is safe for concurrent use.
type Enhancer struct {
	Catalog  StyleCatalog
	Entities EntityRepository
	Access   AccessChecker
	Logger   *slog.Logger
}

func New(catalog StyleCatalog, entities EntityRepository, access AccessChecker, logger *slog.Logger) Enhancer {
	return Enhancer{Catalog: catalog, Entities: entities, Access: access, Logger: logger}
}

func (e Enhancer) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// Enhance returns value with meta.links added for every style the field
// configuration and caller allow. Otherwise value itself is returned.
func (e Enhancer) Enhance(ctx context.Context, value FieldValue, cfg FieldConfiguration, caller Caller) FieldValue {
	styleIDs := ResolveStyles(cfg)
	if len(styleIDs) == 0 {
		return value
	}
	gate := Gate{Entities: e.Entities, Access: e.Access}
	resource, err := gate.Resolve(ctx, value.ID(), caller)
	if err != nil {
		e.logger().DebugContext(ctx, "image field not enhanced", "reason", err.Error())
		return value
	}
	styles, err := e.Catalog.BulkLoad(ctx, styleIDs)
	if err != nil {
		// A failing catalog exposes no styles at all.
		e.logger().WarnContext(ctx, "image style catalog unavailable", "error", err)
		return value
	}
	links := make(map[string]DerivativeLink, len(styles))
	for _, id := range styleIDs {
		style, ok := styles[id]
		if !ok {
			continue
		}
		links[id] = BuildLink(e.Catalog, resource.URI(), style)
	}
	return Merge(value, links)
}
