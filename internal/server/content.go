package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"stylelinks/internal/access"
	"stylelinks/internal/domain"
	"stylelinks/internal/engine"
	"stylelinks/internal/enhancer"
)

func registerFiles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-files",
		Method:      http.MethodGet,
		Path:        "/files",
		Summary:     "List files, newest first",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		OwnerID string `query:"owner_id"`
		Limit   int    `query:"limit" default:"50"`
	}) (*bodyOutput[FileListResponse], error) {
		if err := requirePermission(ctx, e, access.PermFilesRead); err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListFiles(ctx, input.OwnerID, normalizeLimit(input.Limit))
		if err != nil {
			return nil, handleError(err)
		}
		opts := readOptions(ctx)
		visible := make([]domain.File, 0, len(items))
		for _, f := range items {
			ok, err := (access.FileAccess{Perms: e.RBAC}).CanView(ctx, f, opts.Caller)
			if err != nil {
				return nil, handleError(err)
			}
			if ok {
				visible = append(visible, f)
			}
		}
		return respond(FileListResponse{Items: visible}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-file",
		Method:        http.MethodPost,
		Path:          "/files",
		Summary:       "Register file metadata",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateFileRequest `json:"body"`
	}) (*bodyOutput[domain.File], error) {
		if err := requirePermission(ctx, e, access.PermFilesCreate); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		f, err := e.CreateFile(ctx, engine.FileCreateOptions{
			URI:      input.Body.URI,
			Filename: input.Body.Filename,
			MIME:     input.Body.MIME,
			Size:     input.Body.Size,
			Width:    input.Body.Width,
			Height:   input.Body.Height,
			Status:   input.Body.Status,
			ActorID:  actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(f), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-file",
		Method:      http.MethodGet,
		Path:        "/files/{uuid}",
		Summary:     "Get file metadata",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UUID string `path:"uuid"`
	}) (*bodyOutput[domain.File], error) {
		if err := requirePermission(ctx, e, access.PermFilesRead); err != nil {
			return nil, handleError(err)
		}
		f, err := e.ViewFile(ctx, input.UUID, readOptions(ctx).Caller)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(f), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-file",
		Method:        http.MethodDelete,
		Path:          "/files/{uuid}",
		Summary:       "Delete a file; referencing articles keep a dangling reference",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		UUID string `path:"uuid"`
	}) (*struct{}, error) {
		if err := requirePermission(ctx, e, access.PermFilesCreate); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		force := requirePermission(ctx, e, access.PermFilesDelete) == nil
		if err := e.DeleteFile(ctx, input.UUID, actorID, force); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerArticles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-articles",
		Method:      http.MethodGet,
		Path:        "/articles",
		Summary:     "List articles with consumer image style links",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Limit int `query:"limit" default:"50"`
	}) (*bodyOutput[ArticleListResponse], error) {
		if err := requirePermission(ctx, e, access.PermArticlesRead); err != nil {
			return nil, handleError(err)
		}
		views, err := e.ListArticles(ctx, normalizeLimit(input.Limit), readOptions(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		resp := ArticleListResponse{Items: make([]ArticleResponse, 0, len(views))}
		for _, v := range views {
			resp.Items = append(resp.Items, articleResponse(v))
		}
		return respond(resp), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-article",
		Method:      http.MethodGet,
		Path:        "/articles/{uuid}",
		Summary:     "Get article with consumer image style links",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		UUID string `path:"uuid"`
	}) (*bodyOutput[ArticleResponse], error) {
		if err := requirePermission(ctx, e, access.PermArticlesRead); err != nil {
			return nil, handleError(err)
		}
		v, err := e.GetArticle(ctx, input.UUID, readOptions(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return respond(articleResponse(v)), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "create-article",
		Method:        http.MethodPost,
		Path:          "/articles",
		Summary:       "Create article",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body CreateArticleRequest `json:"body"`
	}) (*bodyOutput[ArticleResponse], error) {
		if err := requirePermission(ctx, e, access.PermArticlesCreate); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		opts := engine.ArticleCreateOptions{Title: input.Body.Title, Body: input.Body.Body, ActorID: actorID}
		if img := input.Body.Image; img != nil {
			opts.ImageID, opts.ImageAlt, opts.ImageTitle = img.ID, img.Alt, img.Title
		}
		a, err := e.CreateArticle(ctx, opts)
		if err != nil {
			return nil, handleError(err)
		}
		v, err := e.GetArticle(ctx, a.ID, readOptions(ctx))
		if err != nil {
			return nil, handleError(err)
		}
		return respond(articleResponse(v)), nil
	})
}

func registerFields(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-field-enhancers",
		Method:      http.MethodGet,
		Path:        "/resources/{resource}/fields",
		Summary:     "List field enhancers of a resource",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Resource string `path:"resource"`
	}) (*bodyOutput[[]engine.FieldEnhancerView], error) {
		if err := requirePermission(ctx, e, access.PermFieldsRead); err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListFieldEnhancers(ctx, input.Resource)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(items), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-field-enhancer",
		Method:      http.MethodGet,
		Path:        "/resources/{resource}/fields/{field}/enhancer",
		Summary:     "Get the enhancer bound to a field",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		Resource string `path:"resource"`
		Field    string `path:"field"`
	}) (*bodyOutput[engine.FieldEnhancerView], error) {
		if err := requirePermission(ctx, e, access.PermFieldsRead); err != nil {
			return nil, handleError(err)
		}
		fe, err := e.GetFieldEnhancer(ctx, input.Resource, input.Field)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(fe), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-field-enhancer",
		Method:      http.MethodPut,
		Path:        "/resources/{resource}/fields/{field}/enhancer",
		Summary:     "Bind the image styles enhancer to a field",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Resource string               `path:"resource"`
		Field    string               `path:"field"`
		Body     FieldEnhancerRequest `json:"body"`
	}) (*bodyOutput[engine.FieldEnhancerView], error) {
		if err := requirePermission(ctx, e, access.PermFieldsManage); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		fe, err := e.SetFieldEnhancer(ctx, input.Resource, input.Field, input.Body.Enhancer, input.Body.Settings.settings(), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(fe), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "image-styles-output-schema",
		Method:      http.MethodGet,
		Path:        "/schema/image-styles",
		Summary:     "JSON schema of an enhanced image field",
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[map[string]any], error) {
		return respond(enhancer.OutputJSONSchema()), nil
	})
}

func registerDerivatives(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "verify-derivative-token",
		Method:      http.MethodGet,
		Path:        "/derivatives/verify",
		Summary:     "Check the itok of a derivative URL",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		URI   string `query:"uri" required:"true"`
		Style string `query:"style" required:"true"`
		Token string `query:"itok" required:"true"`
	}) (*bodyOutput[TokenCheckResponse], error) {
		if err := requirePermission(ctx, e, access.PermStylesRead); err != nil {
			return nil, handleError(err)
		}
		return respond(TokenCheckResponse{Valid: e.Catalog.ValidToken(input.URI, input.Style, input.Token)}), nil
	})
}
