package engine

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"stylelinks/internal/domain"
	"stylelinks/internal/enhancer"
	"stylelinks/internal/events"
)

// FieldEnhancerView is a field enhancer binding with decoded settings.
type FieldEnhancerView struct {
	Resource  string            `json:"resource"`
	Field     string            `json:"field"`
	Enhancer  string            `json:"enhancer"`
	Settings  enhancer.Settings `json:"settings"`
	UpdatedAt string            `json:"updated_at" format:"date-time"`
}

func fieldView(fe domain.FieldEnhancer) FieldEnhancerView {
	return FieldEnhancerView{
		Resource:  fe.Resource,
		Field:     fe.Field,
		Enhancer:  fe.Enhancer,
		Settings:  enhancer.ParseSettings([]byte(fe.Settings)),
		UpdatedAt: fe.UpdatedAt,
	}
}

// SetFieldEnhancer binds the image styles enhancer to resource.field.
// Selected styles must exist.
func (e Engine) SetFieldEnhancer(ctx context.Context, resource, field, enhancerID string, settings enhancer.Settings, actorID string) (FieldEnhancerView, error) {
	if resource == "" || field == "" {
		return FieldEnhancerView{}, fmt.Errorf("%w: resource and field required", ErrInvalid)
	}
	if enhancerID == "" {
		enhancerID = enhancer.ID
	}
	if enhancerID != enhancer.ID {
		return FieldEnhancerView{}, fmt.Errorf("%w: unknown enhancer %q", ErrInvalid, enhancerID)
	}
	if err := e.ensureStylesExist(ctx, settings.Styles.CustomSelection.Enabled()); err != nil {
		return FieldEnhancerView{}, err
	}
	raw, err := marshalSettings(settings)
	if err != nil {
		return FieldEnhancerView{}, err
	}
	fe := domain.FieldEnhancer{
		Resource:  resource,
		Field:     field,
		Enhancer:  enhancerID,
		Settings:  raw,
		UpdatedAt: e.timestamp(),
	}
	payload := events.EventPayload{"enhancer": enhancerID, "refine": settings.Styles.Refine}
	err = e.withEvent(ctx, events.FieldEnhancerSaved, "field_enhancer", resource+"."+field, actorID, payload, func(tx *sql.Tx) error {
		return e.Repo.UpsertFieldEnhancer(ctx, tx, fe)
	})
	if err != nil {
		return FieldEnhancerView{}, fmt.Errorf("save field enhancer: %w", err)
	}
	return fieldView(fe), nil
}

func (e Engine) GetFieldEnhancer(ctx context.Context, resource, field string) (FieldEnhancerView, error) {
	fe, err := e.Repo.GetFieldEnhancer(ctx, resource, field)
	if err != nil {
		return FieldEnhancerView{}, err
	}
	return fieldView(fe), nil
}

func (e Engine) ListFieldEnhancers(ctx context.Context, resource string) ([]FieldEnhancerView, error) {
	list, err := e.Repo.ListFieldEnhancers(ctx, resource)
	if err != nil {
		return nil, err
	}
	out := make([]FieldEnhancerView, 0, len(list))
	for _, fe := range list {
		out = append(out, fieldView(fe))
	}
	return out, nil
}

func marshalSettings(s enhancer.Settings) (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal settings: %w", err)
	}
	return string(raw), nil
}
