package enhancer

import (
	"context"
	"errors"
	"strings"
)

type fakeFile struct {
	uuid  string
	uri   string
	image bool
	owner string
}

func (f fakeFile) EntityType() string { return FileEntityType }
func (f fakeFile) UUID() string       { return f.uuid }
func (f fakeFile) FileURI() string    { return f.uri }
func (f fakeFile) IsImage() bool      { return f.image }

type fakeNode struct{ uuid string }

func (n fakeNode) EntityType() string { return "node" }
func (n fakeNode) UUID() string       { return n.uuid }

type fakeEntities struct {
	items map[string]Entity
	err   error
}

func (r fakeEntities) FindByUUID(_ context.Context, entityType, uuid string) (Entity, error) {
	if r.err != nil {
		return nil, r.err
	}
	e, ok := r.items[uuid]
	if !ok {
		return nil, errors.New("not found")
	}
	return e, nil
}

type ownerAccess struct{ err error }

func (a ownerAccess) CanView(_ context.Context, e Entity, c Caller) (bool, error) {
	if a.err != nil {
		return false, a.err
	}
	f, ok := e.(fakeFile)
	if !ok {
		return false, nil
	}
	return f.owner == "" || f.owner == c.ID, nil
}

type fakeCatalog struct {
	styles    map[string]StyleDefinition
	relations map[string][]string
	err       error
}

func newFakeCatalog(ids ...string) fakeCatalog {
	c := fakeCatalog{styles: map[string]StyleDefinition{}, relations: map[string][]string{}}
	for _, id := range ids {
		c.styles[id] = StyleDefinition{ID: id, Label: strings.ToUpper(id)}
		c.relations[id] = []string{"https://example.com/rel/#derivative"}
	}
	return c
}

func (c fakeCatalog) BulkLoad(_ context.Context, ids []string) (map[string]StyleDefinition, error) {
	if c.err != nil {
		return nil, c.err
	}
	out := map[string]StyleDefinition{}
	for _, id := range ids {
		if s, ok := c.styles[id]; ok {
			out[id] = s
		}
	}
	return out, nil
}

func (c fakeCatalog) BuildURL(uri, styleID string) string {
	return "https://cdn.example.com/styles/" + styleID + "/" + strings.Replace(uri, "://", "/", 1)
}

func (c fakeCatalog) RelationsFor(styleID string) []string { return c.relations[styleID] }
