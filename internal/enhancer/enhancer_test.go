package enhancer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnhancer(catalog fakeCatalog) Enhancer {
	entities := fakeEntities{items: map[string]Entity{
		"img":     fakeFile{uuid: "img", uri: "public://cat.jpg", image: true},
		"pdf":     fakeFile{uuid: "pdf", uri: "public://doc.pdf"},
		"private": fakeFile{uuid: "private", uri: "private://me.png", image: true, owner: "alice"},
	}}
	return New(catalog, entities, ownerAccess{}, nil)
}

func fieldValue(id string) FieldValue {
	return FieldValue{"type": "file--file", "id": id, "meta": map[string]any{"alt": "x", "width": 10, "height": 10}}
}

func linksOf(t *testing.T, v FieldValue) map[string]any {
	t.Helper()
	links, ok := v["meta"].(map[string]any)["links"].(map[string]any)
	require.True(t, ok, "links missing")
	return links
}

func TestEnhanceUnrefinedExposesAllGranted(t *testing.T) {
	e := newTestEnhancer(newFakeCatalog("thumbnail", "large", "huge"))
	cfg := NewFieldConfiguration([]string{"thumbnail", "large"}, Settings{})
	got := e.Enhance(context.Background(), fieldValue("img"), cfg, Caller{ID: "bob"})
	links := linksOf(t, got)
	assert.Len(t, links, 2)
	assert.Contains(t, links, "thumbnail")
	assert.Contains(t, links, "large")
	assert.Equal(t, "https://cdn.example.com/styles/large/public/cat.jpg", links["large"].(map[string]any)["href"])
}

func TestEnhanceRefinedDropsUngranted(t *testing.T) {
	e := newTestEnhancer(newFakeCatalog("thumbnail", "large", "huge"))
	cfg := NewFieldConfiguration([]string{"thumbnail", "large"}, Settings{Styles: StyleSettings{
		Refine:          true,
		CustomSelection: Selection{"large", "huge"},
	}})
	got := e.Enhance(context.Background(), fieldValue("img"), cfg, Caller{})
	links := linksOf(t, got)
	assert.Len(t, links, 1)
	assert.Contains(t, links, "large")
}

func TestEnhanceDropsStylesUnknownToCatalog(t *testing.T) {
	e := newTestEnhancer(newFakeCatalog("large"))
	cfg := NewFieldConfiguration([]string{"thumbnail", "large"}, Settings{})
	links := linksOf(t, e.Enhance(context.Background(), fieldValue("img"), cfg, Caller{}))
	assert.Len(t, links, 1)
	assert.Contains(t, links, "large")
}

func TestEnhanceSkipsReturnOriginal(t *testing.T) {
	cfg := NewFieldConfiguration([]string{"thumbnail", "large"}, Settings{})
	tests := []struct {
		name    string
		catalog fakeCatalog
		value   FieldValue
		caller  Caller
	}{
		{name: "unknown uuid", catalog: newFakeCatalog("thumbnail", "large"), value: fieldValue("missing")},
		{name: "not an image", catalog: newFakeCatalog("thumbnail", "large"), value: fieldValue("pdf")},
		{name: "access denied", catalog: newFakeCatalog("thumbnail", "large"), value: fieldValue("private"), caller: Caller{ID: "bob"}},
		{name: "no id", catalog: newFakeCatalog("thumbnail", "large"), value: FieldValue{"type": "file--file"}},
		{name: "catalog failure", catalog: fakeCatalog{err: errors.New("misconfigured")}, value: fieldValue("img")},
		{name: "catalog knows none", catalog: newFakeCatalog(), value: fieldValue("img")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEnhancer(tt.catalog)
			before := cloneValue(tt.value)
			got := e.Enhance(context.Background(), tt.value, cfg, tt.caller)
			if diff := cmp.Diff(before, got); diff != "" {
				t.Fatalf("value changed (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEnhanceNoStylesSkipsLookup(t *testing.T) {
	e := Enhancer{Catalog: newFakeCatalog("large"), Entities: fakeEntities{err: errors.New("must not be called")}, Access: ownerAccess{}}
	v := fieldValue("img")
	assert.Equal(t, v, e.Enhance(context.Background(), v, FieldConfiguration{}, Caller{}))
}

func TestEnhanceIsDeterministicAndConcurrent(t *testing.T) {
	e := newTestEnhancer(newFakeCatalog("thumbnail", "large"))
	cfg := NewFieldConfiguration([]string{"thumbnail", "large"}, Settings{})
	want := e.Enhance(context.Background(), fieldValue("img"), cfg, Caller{})

	var wg sync.WaitGroup
	results := make([]FieldValue, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = e.Enhance(context.Background(), fieldValue("img"), cfg, Caller{})
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("non deterministic output (-want +got):\n%s", diff)
		}
	}
}

func TestBuildLinkDeterministic(t *testing.T) {
	catalog := newFakeCatalog("large")
	large := StyleDefinition{ID: "large", Relations: []string{"https://example.com/rel/#hero", "https://example.com/rel/#derivative"}}
	a := BuildLink(catalog, "public://cat.jpg", large)
	b := BuildLink(catalog, "public://cat.jpg", large)
	assert.Equal(t, a, b)
	assert.Equal(t, "large", a.StyleID)
	assert.Equal(t, []string{"https://example.com/rel/#derivative", "https://example.com/rel/#hero"}, a.Meta.Rel)

	none := BuildLink(catalog, "public://cat.jpg", StyleDefinition{ID: "unknown"})
	assert.NotNil(t, none.Meta.Rel)
	assert.Empty(t, none.Meta.Rel)
}

func TestOutputJSONSchemaShape(t *testing.T) {
	schema := OutputJSONSchema()
	meta := schema["properties"].(map[string]any)["meta"].(map[string]any)["properties"].(map[string]any)
	for _, key := range []string{"height", "width", "alt", "title", "links"} {
		assert.Contains(t, meta, key)
	}
}

func cloneValue(v FieldValue) FieldValue {
	out := FieldValue{}
	for k, val := range v {
		if m, ok := val.(map[string]any); ok {
			inner := map[string]any{}
			for ik, iv := range m {
				inner[ik] = iv
			}
			out[k] = inner
			continue
		}
		out[k] = val
	}
	return out
}
