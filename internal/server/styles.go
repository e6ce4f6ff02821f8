package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"stylelinks/internal/access"
	"stylelinks/internal/domain"
	"stylelinks/internal/engine"
)

var writeErrors = []int{
	http.StatusBadRequest,
	http.StatusForbidden,
	http.StatusNotFound,
	http.StatusConflict,
	http.StatusInternalServerError,
}

func registerStyles(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-image-styles",
		Method:      http.MethodGet,
		Path:        "/image-styles",
		Summary:     "List image styles",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[StyleListResponse], error) {
		if err := requirePermission(ctx, e, access.PermStylesRead); err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListStyles(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(StyleListResponse{Items: items}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "image-style-options",
		Method:      http.MethodGet,
		Path:        "/image-styles/options",
		Summary:     "Enabled styles as id to label",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[map[string]string], error) {
		if err := requirePermission(ctx, e, access.PermStylesRead); err != nil {
			return nil, handleError(err)
		}
		opts, err := e.StyleOptions(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(opts), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-image-style",
		Method:      http.MethodGet,
		Path:        "/image-styles/{style_id}",
		Summary:     "Get image style",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		StyleID string `path:"style_id"`
	}) (*bodyOutput[domain.ImageStyle], error) {
		if err := requirePermission(ctx, e, access.PermStylesRead); err != nil {
			return nil, handleError(err)
		}
		s, err := e.GetStyle(ctx, input.StyleID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(s), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "save-image-style",
		Method:        http.MethodPost,
		Path:          "/image-styles",
		Summary:       "Create or replace an image style",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body SaveStyleRequest `json:"body"`
	}) (*bodyOutput[domain.ImageStyle], error) {
		if err := requirePermission(ctx, e, access.PermStylesManage); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		s, err := e.SaveStyle(ctx, engine.StyleSaveOptions{
			ID:        input.Body.ID,
			Label:     input.Body.Label,
			Disabled:  input.Body.Disabled,
			Relations: input.Body.Relations,
			ActorID:   actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(s), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-image-style",
		Method:        http.MethodDelete,
		Path:          "/image-styles/{style_id}",
		Summary:       "Delete an image style and its consumer grants",
		DefaultStatus: http.StatusNoContent,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		StyleID string `path:"style_id"`
	}) (*struct{}, error) {
		if err := requirePermission(ctx, e, access.PermStylesManage); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteStyle(ctx, input.StyleID, actorID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerConsumers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-consumers",
		Method:      http.MethodGet,
		Path:        "/consumers",
		Summary:     "List consumers and their granted styles",
		Errors:      []int{http.StatusForbidden},
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[ConsumerListResponse], error) {
		if err := requirePermission(ctx, e, access.PermConsumersRead); err != nil {
			return nil, handleError(err)
		}
		items, err := e.ListConsumers(ctx)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(ConsumerListResponse{Items: items}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "get-consumer",
		Method:      http.MethodGet,
		Path:        "/consumers/{consumer_id}",
		Summary:     "Get consumer",
		Errors:      []int{http.StatusForbidden, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		ConsumerID string `path:"consumer_id"`
	}) (*bodyOutput[domain.Consumer], error) {
		if err := requirePermission(ctx, e, access.PermConsumersRead); err != nil {
			return nil, handleError(err)
		}
		c, err := e.GetConsumer(ctx, input.ConsumerID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "save-consumer",
		Method:        http.MethodPost,
		Path:          "/consumers",
		Summary:       "Create or update a consumer",
		DefaultStatus: http.StatusCreated,
		Errors:        writeErrors,
	}, func(ctx context.Context, input *struct {
		Body SaveConsumerRequest `json:"body"`
	}) (*bodyOutput[domain.Consumer], error) {
		if err := requirePermission(ctx, e, access.PermConsumersManage); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SaveConsumer(ctx, engine.ConsumerSaveOptions{
			ID:          input.Body.ID,
			Label:       input.Body.Label,
			Default:     input.Body.Default,
			ImageStyles: input.Body.ImageStyles,
			ActorID:     actorID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return respond(c), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "set-consumer-image-styles",
		Method:      http.MethodPut,
		Path:        "/consumers/{consumer_id}/image-styles",
		Summary:     "Replace the styles granted to a consumer",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		ConsumerID string                   `path:"consumer_id"`
		Body       SetConsumerStylesRequest `json:"body"`
	}) (*bodyOutput[domain.Consumer], error) {
		if err := requirePermission(ctx, e, access.PermConsumersManage); err != nil {
			return nil, handleError(err)
		}
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		c, err := e.SetConsumerImageStyles(ctx, input.ConsumerID, nonNilSlice(input.Body.ImageStyles), actorID)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(c), nil
	})
}
