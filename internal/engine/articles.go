package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"stylelinks/internal/domain"
	"stylelinks/internal/enhancer"
	"stylelinks/internal/events"
	"stylelinks/internal/repo"
)

const (
	ArticleResource = "articles"
	ImageField      = "image"

	// fileResourceType is the JSON:API type of an image field reference.
	fileResourceType = "file--file"

	listConcurrency = 8
)

type ArticleCreateOptions struct {
	Title      string
	Body       string
	ImageID    string
	ImageAlt   *string
	ImageTitle *string
	ActorID    string
}

// ArticleView is an article as served to a consumer.
type ArticleView struct {
	ID        string              `json:"id"`
	Title     string              `json:"title"`
	Body      string              `json:"body,omitempty"`
	AuthorID  string              `json:"author_id"`
	Image     enhancer.FieldValue `json:"image,omitempty"`
	CreatedAt string              `json:"created_at" format:"date-time"`
}

// ReadOptions identifies the reader and the consumer the response is for.
type ReadOptions struct {
	Caller   enhancer.Caller
	Consumer string
}

func (e Engine) CreateArticle(ctx context.Context, opts ArticleCreateOptions) (domain.Article, error) {
	title := strings.TrimSpace(opts.Title)
	if title == "" {
		return domain.Article{}, fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if opts.ActorID == "" {
		return domain.Article{}, fmt.Errorf("%w: author required", ErrInvalid)
	}
	a := domain.Article{
		ID:        uuid.NewString(),
		Title:     title,
		Body:      opts.Body,
		AuthorID:  opts.ActorID,
		CreatedAt: e.timestamp(),
	}
	if opts.ImageID != "" {
		f, err := e.Repo.GetFileByUUID(ctx, opts.ImageID)
		if errors.Is(err, repo.ErrNotFound) {
			return domain.Article{}, fmt.Errorf("%w: image file %s not found", ErrInvalid, opts.ImageID)
		}
		if err != nil {
			return domain.Article{}, err
		}
		if !f.IsImage() {
			return domain.Article{}, fmt.Errorf("%w: file %s is not an image", ErrInvalid, opts.ImageID)
		}
		a.Image = &domain.ImageField{FileID: f.ID, Alt: opts.ImageAlt, Title: opts.ImageTitle}
	}
	err := e.withEvent(ctx, events.ArticleCreated, "article", a.ID, opts.ActorID, events.EventPayload{"title": a.Title}, func(tx *sql.Tx) error {
		return e.Repo.InsertArticle(ctx, tx, a)
	})
	if err != nil {
		return domain.Article{}, fmt.Errorf("insert article: %w", err)
	}
	return a, nil
}

// GetArticle serializes one article, enhancing its image field for read.
func (e Engine) GetArticle(ctx context.Context, id string, read ReadOptions) (ArticleView, error) {
	a, err := e.Repo.GetArticle(ctx, id)
	if err != nil {
		return ArticleView{}, err
	}
	cfg, enhanced := e.fieldConfig(ctx, ArticleResource, ImageField, read)
	return e.articleView(ctx, a, cfg, enhanced, read.Caller), nil
}

// ListArticles serializes the newest articles. Image fields are enhanced
// concurrently; output order follows storage order.
func (e Engine) ListArticles(ctx context.Context, limit int, read ReadOptions) ([]ArticleView, error) {
	articles, err := e.Repo.ListArticles(ctx, limit)
	if err != nil {
		return nil, err
	}
	cfg, enhanced := e.fieldConfig(ctx, ArticleResource, ImageField, read)
	views := make([]ArticleView, len(articles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, a := range articles {
		g.Go(func() error {
			views[i] = e.articleView(gctx, a, cfg, enhanced, read.Caller)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return views, nil
}

func (e Engine) articleView(ctx context.Context, a domain.Article, cfg enhancer.FieldConfiguration, enhanced bool, caller enhancer.Caller) ArticleView {
	v := ArticleView{
		ID:        a.ID,
		Title:     a.Title,
		Body:      a.Body,
		AuthorID:  a.AuthorID,
		CreatedAt: a.CreatedAt,
	}
	if a.Image == nil {
		return v
	}
	v.Image = e.imageValue(ctx, *a.Image)
	if enhanced {
		v.Image = e.Enhancer().Enhance(ctx, v.Image, cfg, caller)
	}
	return v
}

// imageValue renders a stored image field as {type, id, meta}.
func (e Engine) imageValue(ctx context.Context, img domain.ImageField) enhancer.FieldValue {
	meta := map[string]any{}
	if img.Alt != nil {
		meta["alt"] = *img.Alt
	}
	if img.Title != nil {
		meta["title"] = *img.Title
	}
	if f, err := e.Repo.GetFileByUUID(ctx, img.FileID); err == nil {
		if f.Width != nil {
			meta["width"] = *f.Width
		}
		if f.Height != nil {
			meta["height"] = *f.Height
		}
	}
	return enhancer.FieldValue{"type": fileResourceType, "id": img.FileID, "meta": meta}
}

// fieldConfig pairs the enhancer settings stored for resource.field with the
// styles granted to the negotiated consumer. ok is false when the field has no
// image styles enhancer or its configuration cannot be read.
func (e Engine) fieldConfig(ctx context.Context, resource, field string, read ReadOptions) (enhancer.FieldConfiguration, bool) {
	fe, err := e.Repo.GetFieldEnhancer(ctx, resource, field)
	if errors.Is(err, repo.ErrNotFound) {
		return enhancer.FieldConfiguration{}, false
	}
	if err != nil {
		e.logger().WarnContext(ctx, "field enhancer unavailable", "resource", resource, "field", field, "error", err)
		return enhancer.FieldConfiguration{}, false
	}
	if fe.Enhancer != enhancer.ID {
		return enhancer.FieldConfiguration{}, false
	}
	granted, err := e.Consumers.GrantedStyles(ctx, read.Consumer)
	if err != nil {
		e.logger().WarnContext(ctx, "consumer negotiation failed", "consumer", read.Consumer, "error", err)
		return enhancer.FieldConfiguration{}, false
	}
	return enhancer.NewFieldConfiguration(granted, enhancer.ParseSettings([]byte(fe.Settings))), true
}
