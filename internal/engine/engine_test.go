package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"stylelinks/internal/access"
	"stylelinks/internal/config"
	"stylelinks/internal/db"
	"stylelinks/internal/engine"
	"stylelinks/internal/enhancer"
	"stylelinks/internal/migrate"
	"stylelinks/internal/repo"
)

type testEnv struct {
	Engine engine.Engine
	Ctx    context.Context
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()
	if err := migrate.Migrate(ctx, conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	cfg := config.Default()
	eng := engine.New(conn, cfg, nil)
	eng.Now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := eng.ApplyConfig(ctx, cfg, "tester"); err != nil {
		t.Fatalf("apply config: %v", err)
	}
	if err := eng.BootstrapRole(ctx, "root", "admin"); err != nil {
		t.Fatalf("bootstrap admin: %v", err)
	}
	if _, err := eng.SaveConsumer(ctx, engine.ConsumerSaveOptions{
		ID: "mobile", Label: "Mobile app", ImageStyles: []string{"thumbnail", "large"}, ActorID: "tester",
	}); err != nil {
		t.Fatalf("save consumer: %v", err)
	}
	return testEnv{Engine: eng, Ctx: ctx}
}

func (env testEnv) article(t *testing.T, uri, owner string) string {
	t.Helper()
	w, h := 640, 480
	f, err := env.Engine.CreateFile(env.Ctx, engine.FileCreateOptions{URI: uri, MIME: "image/jpeg", Width: &w, Height: &h, ActorID: owner})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	alt := "a cat"
	a, err := env.Engine.CreateArticle(env.Ctx, engine.ArticleCreateOptions{Title: "Cats", ImageID: f.ID, ImageAlt: &alt, ActorID: owner})
	if err != nil {
		t.Fatalf("create article: %v", err)
	}
	return a.ID
}

func links(t *testing.T, v engine.ArticleView) map[string]any {
	t.Helper()
	if v.Image == nil {
		t.Fatalf("article has no image")
	}
	meta, _ := v.Image["meta"].(map[string]any)
	l, _ := meta["links"].(map[string]any)
	return l
}

func TestArticleImageLinksFollowConsumer(t *testing.T) {
	env := newTestEnv(t)
	id := env.article(t, "public://2024/cat.jpg", "alice")

	view, err := env.Engine.GetArticle(env.Ctx, id, engine.ReadOptions{Consumer: "mobile"})
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	got := links(t, view)
	if len(got) != 2 || got["thumbnail"] == nil || got["large"] == nil {
		t.Fatalf("expected thumbnail and large links, got %v", got)
	}
	href := got["large"].(map[string]any)["href"].(string)
	if !strings.HasPrefix(href, "http://127.0.0.1:8080/files/styles/large/public/2024/cat.jpg?itok=") {
		t.Fatalf("unexpected href %s", href)
	}
	meta := view.Image["meta"].(map[string]any)
	if meta["alt"] != "a cat" || meta["width"] != 640 {
		t.Fatalf("original meta lost: %v", meta)
	}

	view, err = env.Engine.GetArticle(env.Ctx, id, engine.ReadOptions{})
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if got := links(t, view); len(got) != 3 {
		t.Fatalf("default consumer should expose 3 styles, got %v", got)
	}
}

func TestRefinedFieldNarrowsStyles(t *testing.T) {
	env := newTestEnv(t)
	id := env.article(t, "public://cat.jpg", "alice")
	settings := enhancer.Settings{Styles: enhancer.StyleSettings{Refine: true, CustomSelection: enhancer.Selection{"large", "medium"}}}
	if _, err := env.Engine.SetFieldEnhancer(env.Ctx, engine.ArticleResource, engine.ImageField, "", settings, "root"); err != nil {
		t.Fatalf("set field enhancer: %v", err)
	}
	view, err := env.Engine.GetArticle(env.Ctx, id, engine.ReadOptions{Consumer: "mobile"})
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	got := links(t, view)
	if len(got) != 1 || got["large"] == nil {
		t.Fatalf("expected only large, got %v", got)
	}
}

func TestDisabledStyleIsDropped(t *testing.T) {
	env := newTestEnv(t)
	id := env.article(t, "public://cat.jpg", "alice")
	if _, err := env.Engine.SaveStyle(env.Ctx, engine.StyleSaveOptions{ID: "large", Label: "Large", Disabled: true, ActorID: "root"}); err != nil {
		t.Fatalf("disable style: %v", err)
	}
	view, _ := env.Engine.GetArticle(env.Ctx, id, engine.ReadOptions{Consumer: "mobile"})
	got := links(t, view)
	if len(got) != 1 || got["thumbnail"] == nil {
		t.Fatalf("expected thumbnail only, got %v", got)
	}
}

func TestPrivateImageRequiresAccess(t *testing.T) {
	env := newTestEnv(t)
	id := env.article(t, "private://me.jpg", "alice")
	cases := []struct {
		name   string
		caller enhancer.Caller
		links  int
	}{
		{"owner", enhancer.Caller{ID: "alice"}, 2},
		{"stranger", enhancer.Caller{ID: "bob"}, 0},
		{"anonymous", enhancer.Caller{}, 0},
		{"admin", enhancer.Caller{ID: "root"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			view, err := env.Engine.GetArticle(env.Ctx, id, engine.ReadOptions{Caller: tc.caller, Consumer: "mobile"})
			if err != nil {
				t.Fatalf("get article: %v", err)
			}
			if got := links(t, view); len(got) != tc.links {
				t.Fatalf("expected %d links, got %v", tc.links, got)
			}
		})
	}
}

func TestDeletedFileLeavesFieldUntouched(t *testing.T) {
	env := newTestEnv(t)
	id := env.article(t, "public://cat.jpg", "alice")
	before, _ := env.Engine.GetArticle(env.Ctx, id, engine.ReadOptions{})
	fileID := before.Image["id"].(string)
	if err := env.Engine.DeleteFile(env.Ctx, fileID, "bob", false); err == nil {
		t.Fatalf("expected non-owner delete to fail")
	}
	if err := env.Engine.DeleteFile(env.Ctx, fileID, "alice", false); err != nil {
		t.Fatalf("delete file: %v", err)
	}
	view, err := env.Engine.GetArticle(env.Ctx, id, engine.ReadOptions{Consumer: "mobile"})
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if got := links(t, view); got != nil {
		t.Fatalf("expected no links, got %v", got)
	}
	if view.Image["id"] != fileID {
		t.Fatalf("reference changed: %v", view.Image)
	}
}

func TestListArticlesEnhancesEach(t *testing.T) {
	env := newTestEnv(t)
	var ids []string
	for i := 0; i < 12; i++ {
		ids = append(ids, env.article(t, "public://cat.jpg", "alice"))
	}
	views, err := env.Engine.ListArticles(env.Ctx, 50, engine.ReadOptions{Consumer: "mobile"})
	if err != nil {
		t.Fatalf("list articles: %v", err)
	}
	if len(views) != len(ids) {
		t.Fatalf("expected %d articles, got %d", len(ids), len(views))
	}
	for i, v := range views {
		if v.ID != ids[len(ids)-1-i] {
			t.Fatalf("article %d out of order", i)
		}
		if got := links(t, v); len(got) != 2 {
			t.Fatalf("article %s: expected 2 links, got %v", v.ID, got)
		}
	}
}

func TestCreateArticleValidatesImage(t *testing.T) {
	env := newTestEnv(t)
	pdf, err := env.Engine.CreateFile(env.Ctx, engine.FileCreateOptions{URI: "public://doc.pdf", MIME: "application/pdf", ActorID: "alice"})
	if err != nil {
		t.Fatalf("create file: %v", err)
	}
	_, err = env.Engine.CreateArticle(env.Ctx, engine.ArticleCreateOptions{Title: "Doc", ImageID: pdf.ID, ActorID: "alice"})
	if !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
	_, err = env.Engine.CreateArticle(env.Ctx, engine.ArticleCreateOptions{Title: "Ghost", ImageID: "missing", ActorID: "alice"})
	if !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
	if _, err := env.Engine.CreateFile(env.Ctx, engine.FileCreateOptions{URI: "ftp://x.png", ActorID: "alice"}); !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected scheme rejection, got %v", err)
	}
}

func TestConsumerStylesMustExist(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.Engine.SetConsumerImageStyles(env.Ctx, "mobile", []string{"thumbnail", "poster"}, "root")
	if !errors.Is(err, engine.ErrInvalid) {
		t.Fatalf("expected invalid error, got %v", err)
	}
	_, err = env.Engine.SetConsumerImageStyles(env.Ctx, "nobody", []string{"thumbnail"}, "root")
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	c, err := env.Engine.SetConsumerImageStyles(env.Ctx, "mobile", []string{"wide", "thumbnail"}, "root")
	if err != nil {
		t.Fatalf("set styles: %v", err)
	}
	if strings.Join(c.ImageStyles, ",") != "wide,thumbnail" {
		t.Fatalf("grant order lost: %v", c.ImageStyles)
	}
}

func TestDeleteStyleRevokesGrants(t *testing.T) {
	env := newTestEnv(t)
	if err := env.Engine.DeleteStyle(env.Ctx, "large", "root"); err != nil {
		t.Fatalf("delete style: %v", err)
	}
	c, err := env.Engine.GetConsumer(env.Ctx, "mobile")
	if err != nil {
		t.Fatalf("get consumer: %v", err)
	}
	if strings.Join(c.ImageStyles, ",") != "thumbnail" {
		t.Fatalf("grant not revoked: %v", c.ImageStyles)
	}
	if err := env.Engine.DeleteStyle(env.Ctx, "large", "root"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGrantRoleRequiresPermission(t *testing.T) {
	env := newTestEnv(t)
	err := env.Engine.GrantRole(env.Ctx, "alice", "bob", "admin")
	var fe access.ForbiddenError
	if !errors.As(err, &fe) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := env.Engine.GrantRole(env.Ctx, "root", "bob", "editor"); err != nil {
		t.Fatalf("grant role: %v", err)
	}
	who, err := env.Engine.WhoAmI(env.Ctx, "bob")
	if err != nil {
		t.Fatalf("whoami: %v", err)
	}
	if len(who.Roles) != 1 || who.Roles[0] != "editor" {
		t.Fatalf("unexpected roles %v", who.Roles)
	}
}

func TestAPIKeyRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	key, plain, err := env.Engine.CreateAPIKey(env.Ctx, "alice", "ci")
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	stored, err := env.Engine.Repo.GetAPIKeyByHash(env.Ctx, repo.HashAPIKey(plain))
	if err != nil {
		t.Fatalf("lookup key: %v", err)
	}
	if stored.ID != key.ID || stored.ActorID != "alice" {
		t.Fatalf("unexpected key %+v", stored)
	}
}

func TestHiddenFilesReportNotFound(t *testing.T) {
	env := newTestEnv(t)
	fileOf := func(uri string) string {
		id := env.article(t, uri, "alice")
		view, err := env.Engine.GetArticle(env.Ctx, id, engine.ReadOptions{Caller: enhancer.Caller{ID: "alice"}})
		if err != nil {
			t.Fatalf("get article: %v", err)
		}
		return view.Image["id"].(string)
	}
	private := fileOf("private://secret/x.png")
	public := fileOf("public://x.png")

	if _, err := env.Engine.ViewFile(env.Ctx, private, enhancer.Caller{ID: "bob"}); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found for hidden file, got %v", err)
	}
	if err := env.Engine.DeleteFile(env.Ctx, private, "bob", false); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected not found deleting hidden file, got %v", err)
	}
	var fe access.ForbiddenError
	if err := env.Engine.DeleteFile(env.Ctx, public, "bob", false); !errors.As(err, &fe) {
		t.Fatalf("expected forbidden deleting visible file, got %v", err)
	}
	if err := env.Engine.DeleteFile(env.Ctx, private, "root", true); err != nil {
		t.Fatalf("forced delete: %v", err)
	}
}
