// Package consumer picks the API consumer a request is made on behalf of and
// the image styles granted to it.
package consumer

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"stylelinks/internal/domain"
	"stylelinks/internal/repo"
)

const (
	HeaderName = "X-Consumer-ID"
	QueryParam = "consumerId"
)

// Store is the repository slice the negotiator reads.
type Store interface {
	GetConsumer(ctx context.Context, id string) (domain.Consumer, error)
	DefaultConsumer(ctx context.Context) (domain.Consumer, error)
	ConsumerImageStyles(ctx context.Context, consumerID string) ([]string, error)
}

type Negotiator struct {
	Store  Store
	Logger *slog.Logger
}

// Requested returns the consumer id named by the request, if any.
func Requested(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(HeaderName)); id != "" {
		return id
	}
	return strings.TrimSpace(r.URL.Query().Get(QueryParam))
}

// Negotiate resolves requested, falling back to the default consumer when it
// is empty or unknown. ok is false when no consumer applies at all.
func (n Negotiator) Negotiate(ctx context.Context, requested string) (c domain.Consumer, ok bool, err error) {
	if requested != "" {
		c, err = n.Store.GetConsumer(ctx, requested)
		switch {
		case err == nil:
			return c, true, nil
		case !errors.Is(err, repo.ErrNotFound):
			return domain.Consumer{}, false, err
		}
		n.logger().DebugContext(ctx, "unknown consumer, using default", "consumer", requested)
	}
	c, err = n.Store.DefaultConsumer(ctx)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Consumer{}, false, nil
	}
	if err != nil {
		return domain.Consumer{}, false, err
	}
	return c, true, nil
}

// GrantedStyles returns the ordered style ids granted to the negotiated
// consumer. No consumer means no styles.
func (n Negotiator) GrantedStyles(ctx context.Context, requested string) ([]string, error) {
	c, ok, err := n.Negotiate(ctx, requested)
	if err != nil || !ok {
		return nil, err
	}
	if c.ImageStyles != nil {
		return c.ImageStyles, nil
	}
	return n.Store.ConsumerImageStyles(ctx, c.ID)
}

func (n Negotiator) logger() *slog.Logger {
	if n.Logger != nil {
		return n.Logger
	}
	return slog.Default()
}
