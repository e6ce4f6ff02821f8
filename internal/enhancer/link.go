package enhancer

import "context"

// StyleDefinition is the part of a catalog style the enhancer needs.
type StyleDefinition struct {
	ID        string
	Label     string
	Relations []string
}

// LinkCatalog is the URL side of a style catalog.
type LinkCatalog interface {
	BuildURL(uri, styleID string) string
	RelationsFor(styleID string) []string
}

// StyleCatalog bulk-loads style definitions. Unknown ids are absent from the
// returned map; they are not an error.
type StyleCatalog interface {
	LinkCatalog
	BulkLoad(ctx context.Context, ids []string) (map[string]StyleDefinition, error)
}

// DerivativeLink points at a styled derivative of an image.
type DerivativeLink struct {
	StyleID string   `json:"-"`
	Href    string   `json:"href" format:"uri"`
	Meta    LinkMeta `json:"meta"`
}

type LinkMeta struct {
	Rel []string `json:"rel"`
}

// BuildLink builds the derivative link of uri for style. Relations are the
// catalog's relations for the style followed by those the style declares.
func BuildLink(catalog LinkCatalog, uri string, style StyleDefinition) DerivativeLink {
	rel := make([]string, 0, len(style.Relations)+1)
	seen := map[string]struct{}{}
	for _, group := range [][]string{catalog.RelationsFor(style.ID), style.Relations} {
		for _, r := range group {
			if _, dup := seen[r]; dup || r == "" {
				continue
			}
			seen[r] = struct{}{}
			rel = append(rel, r)
		}
	}
	return DerivativeLink{
		StyleID: style.ID,
		Href:    catalog.BuildURL(uri, style.ID),
		Meta:    LinkMeta{Rel: rel},
	}
}

// Value renders the link in the generic payload form.
func (l DerivativeLink) Value() map[string]any {
	rel := make([]any, 0, len(l.Meta.Rel))
	for _, r := range l.Meta.Rel {
		rel = append(rel, r)
	}
	return map[string]any{
		"href": l.Href,
		"meta": map[string]any{"rel": rel},
	}
}
