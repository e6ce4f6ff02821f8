package domain

import (
	"strings"

	"stylelinks/internal/enhancer"
)

// File is a stored file entity. FID is the storage key and never leaves the
// repository; ID is the wire UUID.
type File struct {
	FID       int64  `json:"-"`
	ID        string `json:"id"`
	URI       string `json:"uri"`
	Filename  string `json:"filename"`
	MIME      string `json:"filemime"`
	Size      int64  `json:"filesize"`
	Width     *int   `json:"width,omitempty"`
	Height    *int   `json:"height,omitempty"`
	OwnerID   string `json:"owner_id"`
	Status    string `json:"status" enum:"permanent,temporary"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

var imageMIMETypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
	"image/webp": {},
}

func (f File) EntityType() string { return enhancer.FileEntityType }
func (f File) UUID() string       { return f.ID }
func (f File) FileURI() string    { return f.URI }

// IsImage reports whether the file is a raster image styles can be applied to.
func (f File) IsImage() bool {
	mime := strings.ToLower(strings.TrimSpace(f.MIME))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	_, ok := imageMIMETypes[mime]
	return ok
}

// Scheme returns the stream wrapper of the file URI, defaulting to public.
func (f File) Scheme() string {
	if i := strings.Index(f.URI, "://"); i > 0 {
		return f.URI[:i]
	}
	return "public"
}

// ImageField is the stored value of an article image field.
type ImageField struct {
	FileID string  `json:"id"`
	Alt    *string `json:"alt,omitempty"`
	Title  *string `json:"title,omitempty"`
}

type Article struct {
	ID        string      `json:"id"`
	Title     string      `json:"title"`
	Body      string      `json:"body,omitempty"`
	AuthorID  string      `json:"author_id"`
	Image     *ImageField `json:"image,omitempty"`
	CreatedAt string      `json:"created_at" format:"date-time"`
}

type ImageStyle struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Status    string   `json:"status" enum:"enabled,disabled"`
	Relations []string `json:"relations"`
	CreatedAt string   `json:"created_at" format:"date-time"`
}

type Consumer struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	IsDefault   bool     `json:"is_default"`
	ImageStyles []string `json:"image_styles"`
	CreatedAt   string   `json:"created_at" format:"date-time"`
}

// FieldEnhancer binds an enhancer and its settings to a resource field.
type FieldEnhancer struct {
	Resource  string `json:"resource"`
	Field     string `json:"field"`
	Enhancer  string `json:"enhancer"`
	Settings  string `json:"settings_json"`
	UpdatedAt string `json:"updated_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

type ActorProfile struct {
	ActorID     string   `json:"actor_id"`
	Roles       []string `json:"roles"`
	Permissions []string `json:"permissions"`
}
