package stylelinkssdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleSendsConsumerAndDecodesLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v0/articles/a1", r.URL.Path)
		assert.Equal(t, "mobile", r.Header.Get("X-Consumer-ID"))
		assert.Equal(t, "sl_key", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"a1","title":"Hello","author_id":"alice","image":{"type":"file--file","id":"f1",
			"meta":{"alt":"hero","links":{"large":{"href":"https://cdn/styles/large/public/x.png","meta":{"rel":["r"]}},
			"thumbnail":{"href":"https://cdn/styles/thumbnail/public/x.png","meta":{"rel":["r"]}}}}}}`))
	}))
	defer srv.Close()

	c := New(srv.URL, "mobile")
	c.APIKey = "sl_key"
	a, err := c.Article(context.Background(), "a1")
	require.NoError(t, err)
	require.NotNil(t, a.Image)
	assert.Equal(t, []string{"large", "thumbnail"}, a.Image.Styles())
	assert.Equal(t, "hero", a.Image.Meta.Alt)
	assert.Equal(t, "https://cdn/styles/large/public/x.png", a.Image.Meta.Links["large"].Href)
}

func TestErrorEnvelopeDecoded(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"error":{"code":"forbidden","message":"missing permission styles.manage"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "").SaveConsumer(context.Background(), Consumer{ID: "tv"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.StatusCode)
	assert.Equal(t, "forbidden", apiErr.Code)
}
