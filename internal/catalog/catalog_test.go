package catalog

import (
	"context"
	"errors"
	"strings"
	"testing"

	"stylelinks/internal/domain"
)

type memStyles map[string]domain.ImageStyle

func (m memStyles) LoadStyles(_ context.Context, ids []string) (map[string]domain.ImageStyle, error) {
	out := map[string]domain.ImageStyle{}
	for _, id := range ids {
		if s, ok := m[id]; ok && s.Status == "enabled" {
			out[id] = s
		}
	}
	return out, nil
}

type brokenStyles struct{}

func (brokenStyles) LoadStyles(context.Context, []string) (map[string]domain.ImageStyle, error) {
	return nil, errors.New("no such table: image_styles")
}

func TestBuildURLDeterministic(t *testing.T) {
	c := New(nil, "https://cdn.example.com/files/", []byte("secret"), nil)
	a := c.BuildURL("public://2024/01/cat photo.jpg", "large")
	b := c.BuildURL("public://2024/01/cat photo.jpg", "large")
	if a != b {
		t.Fatalf("urls differ: %s vs %s", a, b)
	}
	prefix := "https://cdn.example.com/files/styles/large/public/2024/01/cat%20photo.jpg?itok="
	if !strings.HasPrefix(a, prefix) {
		t.Fatalf("unexpected url %s", a)
	}
	if tok := strings.TrimPrefix(a, prefix); len(tok) != TokenLength || !c.ValidToken("public://2024/01/cat photo.jpg", "large", tok) {
		t.Fatalf("bad token %q", tok)
	}
	if other := c.BuildURL("public://2024/01/cat photo.jpg", "thumbnail"); other == a {
		t.Fatalf("style must change the url")
	}
}

func TestBuildURLSchemes(t *testing.T) {
	c := New(nil, "https://cdn", []byte("k"), nil)
	if got := c.BuildURL("private://a.png", "s"); !strings.HasPrefix(got, "https://cdn/styles/s/private/a.png?itok=") {
		t.Fatalf("private url %s", got)
	}
	if got := c.BuildURL("b.png", "s"); !strings.HasPrefix(got, "https://cdn/styles/s/public/b.png?itok=") {
		t.Fatalf("schemeless url %s", got)
	}
}

func TestTokenDependsOnKey(t *testing.T) {
	a := New(nil, "https://cdn", []byte("one"), nil)
	b := New(nil, "https://cdn", []byte("two"), nil)
	if a.Token("public://x.png", "large") == b.Token("public://x.png", "large") {
		t.Fatalf("tokens must differ across keys")
	}
}

func TestBulkLoadDropsUnknownAndDisabled(t *testing.T) {
	styles := memStyles{
		"large":     {ID: "large", Label: "Large", Status: "enabled", Relations: []string{"https://rel/#hero"}},
		"thumbnail": {ID: "thumbnail", Label: "Thumb", Status: "disabled"},
	}
	c := New(styles, "https://cdn", nil, []string{"https://rel/#derivative"})
	got, err := c.BulkLoad(context.Background(), []string{"large", "thumbnail", "huge"})
	if err != nil {
		t.Fatalf("bulk load: %v", err)
	}
	if len(got) != 1 || got["large"].Label != "Large" || len(got["large"].Relations) != 1 {
		t.Fatalf("unexpected styles %+v", got)
	}
	rels := c.RelationsFor("large")
	rels[0] = "mutated"
	if c.RelationsFor("large")[0] != "https://rel/#derivative" {
		t.Fatalf("relations must be copied")
	}
}

func TestBulkLoadError(t *testing.T) {
	c := New(brokenStyles{}, "https://cdn", nil, nil)
	if _, err := c.BulkLoad(context.Background(), []string{"large"}); err == nil {
		t.Fatalf("expected error")
	}
}
