package server

import (
	"encoding/json"

	"stylelinks/internal/domain"
	"stylelinks/internal/engine"
	"stylelinks/internal/enhancer"
)

// Request payloads

type SaveStyleRequest struct {
	ID        string   `json:"id" pattern:"^[a-z0-9_]+$"`
	Label     string   `json:"label,omitempty"`
	Disabled  bool     `json:"disabled,omitempty"`
	Relations []string `json:"relations,omitempty"`
}

type SaveConsumerRequest struct {
	ID          string   `json:"id"`
	Label       string   `json:"label,omitempty"`
	Default     bool     `json:"default,omitempty"`
	ImageStyles []string `json:"image_styles,omitempty"`
}

type SetConsumerStylesRequest struct {
	ImageStyles []string `json:"image_styles"`
}

type CreateFileRequest struct {
	URI      string `json:"uri" example:"public://2024/cat.jpg"`
	Filename string `json:"filename,omitempty"`
	MIME     string `json:"filemime" example:"image/jpeg"`
	Size     int64  `json:"filesize,omitempty"`
	Width    *int   `json:"width,omitempty"`
	Height   *int   `json:"height,omitempty"`
	Status   string `json:"status,omitempty" enum:"permanent,temporary"`
}

type ImageFieldRequest struct {
	ID    string  `json:"id"`
	Alt   *string `json:"alt,omitempty"`
	Title *string `json:"title,omitempty"`
}

type CreateArticleRequest struct {
	Title string             `json:"title"`
	Body  string             `json:"body,omitempty"`
	Image *ImageFieldRequest `json:"image,omitempty"`
}

type FieldEnhancerRequest struct {
	Enhancer string             `json:"enhancer,omitempty" enum:"image_styles"`
	Settings FieldSettingsInput `json:"settings"`
}

type FieldSettingsInput struct {
	Styles struct {
		Refine          bool     `json:"refine,omitempty"`
		CustomSelection []string `json:"custom_selection,omitempty"`
	} `json:"styles"`
}

func (in FieldSettingsInput) settings() enhancer.Settings {
	return enhancer.Settings{Styles: enhancer.StyleSettings{
		Refine:          in.Styles.Refine,
		CustomSelection: enhancer.Selection(in.Styles.CustomSelection),
	}}
}

type RoleChangeRequest struct {
	ActorID string `json:"actor_id"`
	RoleID  string `json:"role_id"`
}

type CreateAPIKeyRequest struct {
	Name string `json:"name,omitempty"`
}

type DevLoginRequest struct {
	ActorID     string   `json:"actor_id"`
	Roles       []string `json:"roles,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
	TTLSeconds  int      `json:"ttl_seconds,omitempty"`
}

// Responses

type StyleListResponse struct {
	Items []domain.ImageStyle `json:"items"`
}

type ConsumerListResponse struct {
	Items []domain.Consumer `json:"items"`
}

type FileListResponse struct {
	Items []domain.File `json:"items"`
}

type ArticleResponse struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	Body      string         `json:"body,omitempty"`
	AuthorID  string         `json:"author_id"`
	Image     map[string]any `json:"image,omitempty"`
	CreatedAt string         `json:"created_at" format:"date-time"`
}

type ArticleListResponse struct {
	Items []ArticleResponse `json:"items"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts" format:"date-time"`
	Type       string         `json:"type"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

type EventListResponse struct {
	Items []EventResponse `json:"items"`
}

type WhoAmIResponse struct {
	ActorID     string   `json:"actor_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}

type APIKeyResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Key       string `json:"key,omitempty"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type DevLoginResponse struct {
	Token string `json:"token"`
}

type TokenCheckResponse struct {
	Valid bool `json:"valid"`
}

func articleResponse(v engine.ArticleView) ArticleResponse {
	out := ArticleResponse{
		ID:        v.ID,
		Title:     v.Title,
		Body:      v.Body,
		AuthorID:  v.AuthorID,
		CreatedAt: v.CreatedAt,
	}
	if v.Image != nil {
		out.Image = map[string]any(v.Image)
	}
	return out
}

func eventResponse(e domain.Event) EventResponse {
	payload := map[string]any{}
	if e.Payload != "" {
		_ = json.Unmarshal([]byte(e.Payload), &payload)
	}
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    payload,
	}
}

func nonNilSlice[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
