package enhancer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateResolve(t *testing.T) {
	entities := fakeEntities{items: map[string]Entity{
		"img":     fakeFile{uuid: "img", uri: "public://cat.jpg", image: true},
		"pdf":     fakeFile{uuid: "pdf", uri: "public://doc.pdf", image: false},
		"private": fakeFile{uuid: "private", uri: "private://me.png", image: true, owner: "alice"},
		"node":    fakeNode{uuid: "node"},
	}}
	gate := Gate{Entities: entities, Access: ownerAccess{}}
	ctx := context.Background()

	res, err := gate.Resolve(ctx, "img", Caller{ID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, "img", res.UUID())
	assert.Equal(t, "public://cat.jpg", res.URI())

	res, err = gate.Resolve(ctx, "private", Caller{ID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, "private://me.png", res.URI())

	for name, tc := range map[string]struct {
		ref    string
		caller Caller
	}{
		"missing":     {ref: "nope"},
		"empty":       {ref: ""},
		"not image":   {ref: "pdf"},
		"wrong type":  {ref: "node"},
		"not allowed": {ref: "private", caller: Caller{ID: "bob"}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := gate.Resolve(ctx, tc.ref, tc.caller)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSkip)
		})
	}
}

func TestGateCollaboratorErrorsSkip(t *testing.T) {
	ctx := context.Background()
	broken := Gate{Entities: fakeEntities{err: errors.New("storage down")}, Access: ownerAccess{}}
	_, err := broken.Resolve(ctx, "img", Caller{})
	assert.ErrorIs(t, err, ErrSkip)

	denied := Gate{
		Entities: fakeEntities{items: map[string]Entity{"img": fakeFile{uuid: "img", image: true}}},
		Access:   ownerAccess{err: errors.New("acl backend")},
	}
	_, err = denied.Resolve(ctx, "img", Caller{})
	assert.ErrorIs(t, err, ErrSkip)
}
