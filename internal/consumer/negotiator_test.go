package consumer

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stylelinks/internal/domain"
	"stylelinks/internal/repo"
)

type memStore struct {
	consumers map[string]domain.Consumer
	grants    map[string][]string
	err       error
}

func (m memStore) GetConsumer(_ context.Context, id string) (domain.Consumer, error) {
	if m.err != nil {
		return domain.Consumer{}, m.err
	}
	c, ok := m.consumers[id]
	if !ok {
		return domain.Consumer{}, repo.ErrNotFound
	}
	return c, nil
}

func (m memStore) DefaultConsumer(_ context.Context) (domain.Consumer, error) {
	if m.err != nil {
		return domain.Consumer{}, m.err
	}
	for _, c := range m.consumers {
		if c.IsDefault {
			return c, nil
		}
	}
	return domain.Consumer{}, repo.ErrNotFound
}

func (m memStore) ConsumerImageStyles(_ context.Context, id string) ([]string, error) {
	return m.grants[id], m.err
}

func TestRequested(t *testing.T) {
	r := httptest.NewRequest("GET", "/v0/articles?consumerId=app", nil)
	assert.Equal(t, "app", Requested(r))
	r.Header.Set(HeaderName, " web ")
	assert.Equal(t, "web", Requested(r))
	assert.Equal(t, "", Requested(httptest.NewRequest("GET", "/v0/articles", nil)))
}

func TestGrantedStyles(t *testing.T) {
	store := memStore{
		consumers: map[string]domain.Consumer{
			"default": {ID: "default", IsDefault: true},
			"mobile":  {ID: "mobile"},
		},
		grants: map[string][]string{
			"default": {"medium"},
			"mobile":  {"thumbnail", "large"},
		},
	}
	n := Negotiator{Store: store}
	ctx := context.Background()

	got, err := n.GrantedStyles(ctx, "mobile")
	require.NoError(t, err)
	assert.Equal(t, []string{"thumbnail", "large"}, got)

	got, err = n.GrantedStyles(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"medium"}, got)

	got, err = n.GrantedStyles(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, []string{"medium"}, got)
}

func TestGrantedStylesWithoutConsumers(t *testing.T) {
	n := Negotiator{Store: memStore{}}
	got, err := n.GrantedStyles(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestNegotiateStorageError(t *testing.T) {
	n := Negotiator{Store: memStore{err: errors.New("database is locked")}}
	_, ok, err := n.Negotiate(context.Background(), "mobile")
	assert.Error(t, err)
	assert.False(t, ok)
}
