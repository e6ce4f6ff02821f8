package stylelinkssdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// Client is a minimal Stylelinks HTTP API client.
type Client struct {
	BaseURL     string
	BasePath    string
	ConsumerID  string
	APIKey      string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults. consumerID may be empty to use the
// server's default consumer.
func New(baseURL, consumerID string) *Client {
	return &Client{
		BaseURL:    baseURL,
		BasePath:   "v0",
		ConsumerID: consumerID,
		Timeout:    10 * time.Second,
	}
}

type ImageStyle struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Status    string   `json:"status"`
	Relations []string `json:"relations"`
}

type Consumer struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	IsDefault   bool     `json:"is_default"`
	ImageStyles []string `json:"image_styles"`
}

type File struct {
	ID      string `json:"id"`
	URI     string `json:"uri"`
	MIME    string `json:"filemime"`
	OwnerID string `json:"owner_id"`
	Status  string `json:"status"`
}

// Link is one derivative of an image.
type Link struct {
	Href string `json:"href"`
	Meta struct {
		Rel []string `json:"rel"`
	} `json:"meta"`
}

// Image is an enhanced image field.
type Image struct {
	Type string `json:"type"`
	ID   string `json:"id"`
	Meta struct {
		Alt    string          `json:"alt,omitempty"`
		Title  string          `json:"title,omitempty"`
		Width  int             `json:"width,omitempty"`
		Height int             `json:"height,omitempty"`
		Links  map[string]Link `json:"links,omitempty"`
	} `json:"meta"`
}

// Styles returns the style ids the image has links for, sorted.
func (i Image) Styles() []string {
	out := make([]string, 0, len(i.Meta.Links))
	for id := range i.Meta.Links {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type Article struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body,omitempty"`
	AuthorID  string `json:"author_id"`
	Image     *Image `json:"image,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Event represents a log entry.
type Event struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	EntityID   string         `json:"entity_id"`
	EntityKind string         `json:"entity_kind"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s message=%s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// ImageStyles lists every style known to the server.
func (c *Client) ImageStyles(ctx context.Context) ([]ImageStyle, error) {
	var resp struct {
		Items []ImageStyle `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, "image-styles", nil, &resp)
	return resp.Items, err
}

// SaveConsumer creates or updates a consumer and its granted styles.
func (c *Client) SaveConsumer(ctx context.Context, consumer Consumer) (Consumer, error) {
	var resp Consumer
	err := c.do(ctx, http.MethodPost, "consumers", consumer, &resp)
	return resp, err
}

// CreateFile registers an image by stream URI.
func (c *Client) CreateFile(ctx context.Context, uri, mime string) (File, error) {
	var resp File
	err := c.do(ctx, http.MethodPost, "files", map[string]any{"uri": uri, "filemime": mime}, &resp)
	return resp, err
}

// CreateArticle creates an article whose image field references fileID.
func (c *Client) CreateArticle(ctx context.Context, title, fileID, alt string) (Article, error) {
	body := map[string]any{"title": title}
	if fileID != "" {
		image := map[string]any{"id": fileID}
		if alt != "" {
			image["alt"] = alt
		}
		body["image"] = image
	}
	var resp Article
	err := c.do(ctx, http.MethodPost, "articles", body, &resp)
	return resp, err
}

// Article fetches an article with derivative links for the client's consumer.
func (c *Client) Article(ctx context.Context, id string) (Article, error) {
	var resp Article
	err := c.do(ctx, http.MethodGet, "articles/"+url.PathEscape(id), nil, &resp)
	return resp, err
}

// Articles lists articles with derivative links for the client's consumer.
func (c *Client) Articles(ctx context.Context, limit int) ([]Article, error) {
	endpoint := "articles"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []Article `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

// Events returns recent events.
func (c *Client) Events(ctx context.Context, limit int) ([]Event, error) {
	endpoint := "events"
	if limit > 0 {
		endpoint = fmt.Sprintf("%s?limit=%d", endpoint, limit)
	}
	var resp struct {
		Items []Event `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, endpoint, nil, &resp)
	return resp.Items, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	url := c.base() + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, url, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.ConsumerID != "" {
		req.Header.Set("X-Consumer-ID", c.ConsumerID)
	}
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.APIKey != "":
		req.Header.Set("X-Api-Key", c.APIKey)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var envelope struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &envelope) == nil {
			apiErr.Code = envelope.Error.Code
			apiErr.Message = envelope.Error.Message
		}
		return apiErr
	}
	if out != nil && resp.StatusCode != http.StatusNoContent {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (c *Client) base() string {
	base := strings.TrimRight(c.BaseURL, "/")
	if p := strings.Trim(c.BasePath, "/"); p != "" {
		base += "/" + p
	}
	return base
}
