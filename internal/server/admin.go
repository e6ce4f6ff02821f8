package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"stylelinks/internal/access"
	"stylelinks/internal/engine"
	"stylelinks/internal/repo"
)

func registerHealth(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[map[string]string], error) {
		return respond(map[string]string{"status": "ok"}), nil
	})
}

func registerEvents(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "list-events",
		Method:      http.MethodGet,
		Path:        "/events",
		Summary:     "List recent events",
		Errors:      []int{http.StatusBadRequest, http.StatusForbidden},
	}, func(ctx context.Context, input *struct {
		Type       string `query:"type"`
		EntityKind string `query:"entity_kind" enum:"file,article,image_style,consumer,field_enhancer,config"`
		EntityID   string `query:"entity_id"`
		Limit      int    `query:"limit" default:"50"`
	}) (*bodyOutput[EventListResponse], error) {
		if err := requirePermission(ctx, e, access.PermEventsRead); err != nil {
			return nil, handleError(err)
		}
		items, err := e.LatestEvents(ctx, normalizeLimit(input.Limit), input.Type, input.EntityKind, input.EntityID)
		if err != nil {
			return nil, handleError(err)
		}
		resp := EventListResponse{Items: make([]EventResponse, 0, len(items))}
		for _, evt := range items {
			resp.Items = append(resp.Items, eventResponse(evt))
		}
		return respond(resp), nil
	})
}

func registerRBAC(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "grant-role",
		Method:      http.MethodPost,
		Path:        "/rbac/roles/grant",
		Summary:     "Grant role",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Body RoleChangeRequest `json:"body"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.GrantRole(ctx, actorID, input.Body.ActorID, input.Body.RoleID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "revoke-role",
		Method:      http.MethodPost,
		Path:        "/rbac/roles/revoke",
		Summary:     "Revoke role",
		Errors:      writeErrors,
	}, func(ctx context.Context, input *struct {
		Body RoleChangeRequest `json:"body"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.RevokeRole(ctx, actorID, input.Body.ActorID, input.Body.RoleID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerMe(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "me",
		Method:      http.MethodGet,
		Path:        "/me",
		Summary:     "Current principal",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[WhoAmIResponse], error) {
		principal, authErr := principalFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		roles := principal.Roles
		perms := principal.Permissions
		if !principal.Anonymous() {
			if who, err := e.WhoAmI(ctx, principal.ActorID); err == nil {
				if len(roles) == 0 {
					roles = who.Roles
				}
				perms = mergePermissions(perms, who.Permissions)
			}
		}
		return respond(WhoAmIResponse{
			ActorID:     principal.ActorID,
			Roles:       nonNilSlice(roles),
			Permissions: nonNilSlice(perms),
		}), nil
	})
}

func mergePermissions(a, b []string) []string {
	out := append([]string{}, a...)
	for _, p := range b {
		if !hasPermission(out, p) {
			out = append(out, p)
		}
	}
	return out
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "create-api-key",
		Method:        http.MethodPost,
		Path:          "/me/api-keys",
		Summary:       "Create an API key for the current actor",
		DefaultStatus: http.StatusCreated,
		Errors:        []int{http.StatusBadRequest, http.StatusUnauthorized},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*bodyOutput[APIKeyResponse], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		key, plain, err := e.CreateAPIKey(ctx, actorID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return respond(APIKeyResponse{ID: key.ID, Name: key.Name, Key: plain, CreatedAt: key.CreatedAt}), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "list-api-keys",
		Method:      http.MethodGet,
		Path:        "/me/api-keys",
		Summary:     "List the current actor's API keys",
		Errors:      []int{http.StatusUnauthorized},
	}, func(ctx context.Context, _ *struct{}) (*bodyOutput[[]APIKeyResponse], error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		keys, err := e.Repo.ListAPIKeys(ctx, actorID)
		if err != nil {
			return nil, handleError(err)
		}
		out := make([]APIKeyResponse, 0, len(keys))
		for _, k := range keys {
			out = append(out, APIKeyResponse{ID: k.ID, Name: k.Name, CreatedAt: k.CreatedAt})
		}
		return respond(out), nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "delete-api-key",
		Method:        http.MethodDelete,
		Path:          "/me/api-keys/{key_id}",
		Summary:       "Revoke one of the current actor's API keys",
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{http.StatusUnauthorized, http.StatusNotFound},
	}, func(ctx context.Context, input *struct {
		KeyID string `path:"key_id"`
	}) (*struct{}, error) {
		actorID, authErr := actorIDFromContext(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.Repo.DeleteAPIKey(ctx, actorID, input.KeyID); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return nil, newAPIError(http.StatusNotFound, "not_found", "api key not found", nil)
			}
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerDevAuth(api huma.API, authCfg AuthConfig) {
	huma.Register(api, huma.Operation{
		OperationID: "dev-login",
		Method:      http.MethodPost,
		Path:        "/auth/dev/login",
		Summary:     "DEV ONLY: mint a JWT for local testing",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
		},
	}, func(ctx context.Context, input *struct {
		Body DevLoginRequest `json:"body"`
	}) (*bodyOutput[DevLoginResponse], error) {
		if len(bodyBytes(ctx)) == 0 {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "body required", nil)
		}
		actor := strings.TrimSpace(input.Body.ActorID)
		if actor == "" {
			return nil, newAPIError(http.StatusBadRequest, "bad_request", "actor_id is required", nil)
		}
		ttl := time.Duration(input.Body.TTLSeconds) * time.Second
		token, err := signDevToken(authCfg.JWTSecret, actor, input.Body.Roles, input.Body.Permissions, ttl)
		if err != nil {
			return nil, newAPIError(http.StatusInternalServerError, "internal_error", err.Error(), nil)
		}
		return respond(DevLoginResponse{Token: token}), nil
	})
}
