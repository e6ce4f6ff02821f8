package access

import (
	"context"
	"errors"
	"testing"

	"stylelinks/internal/domain"
	"stylelinks/internal/enhancer"
)

type staticRoles struct {
	roles map[string][]string
	perms map[string][]string
	err   error
}

func (s staticRoles) ActorRoles(_ context.Context, actorID string) ([]string, error) {
	return s.roles[actorID], s.err
}

func (s staticRoles) RolePermissions(_ context.Context, roleIDs []string) ([]string, error) {
	var out []string
	for _, r := range roleIDs {
		out = append(out, s.perms[r]...)
	}
	return out, s.err
}

type otherEntity struct{}

func (otherEntity) EntityType() string { return "node" }
func (otherEntity) UUID() string       { return "n1" }

func TestFileAccess(t *testing.T) {
	svc := Service{Roles: staticRoles{
		roles: map[string][]string{"root": {"admin"}},
		perms: map[string][]string{"admin": {PermFilesViewAny}},
	}}
	check := FileAccess{Perms: svc}
	ctx := context.Background()

	public := domain.File{URI: "public://a.png", OwnerID: "alice", Status: "permanent"}
	private := domain.File{URI: "private://b.png", OwnerID: "alice", Status: "permanent"}
	temp := domain.File{URI: "public://c.png", OwnerID: "alice", Status: "temporary"}

	cases := []struct {
		name   string
		entity enhancer.Entity
		caller enhancer.Caller
		want   bool
	}{
		{"public anonymous", public, enhancer.Caller{}, true},
		{"private owner", private, enhancer.Caller{ID: "alice"}, true},
		{"private stranger", private, enhancer.Caller{ID: "bob"}, false},
		{"private anonymous", private, enhancer.Caller{}, false},
		{"private token permission", private, enhancer.Caller{ID: "bob", Permissions: []string{PermFilesViewAny}}, true},
		{"private stored permission", private, enhancer.Caller{ID: "root"}, true},
		{"temporary owner", temp, enhancer.Caller{ID: "alice"}, true},
		{"temporary admin", temp, enhancer.Caller{ID: "root"}, false},
		{"not a file", otherEntity{}, enhancer.Caller{ID: "root"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := check.CanView(ctx, tc.entity, tc.caller)
			if err != nil {
				t.Fatalf("can view: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestServiceRequire(t *testing.T) {
	svc := Service{Roles: staticRoles{
		roles: map[string][]string{"ed": {"editor"}},
		perms: map[string][]string{"editor": {PermFilesCreate}},
	}}
	ctx := context.Background()
	if err := svc.Require(ctx, "ed", PermFilesCreate); err != nil {
		t.Fatalf("expected permission: %v", err)
	}
	err := svc.Require(ctx, "ed", PermStylesManage)
	var fe ForbiddenError
	if !errors.As(err, &fe) || fe.Permission != PermStylesManage {
		t.Fatalf("expected forbidden, got %v", err)
	}
	broken := Service{Roles: staticRoles{err: errors.New("db closed")}}
	if err := broken.Require(ctx, "ed", PermFilesCreate); err == nil || errors.As(err, &fe) {
		t.Fatalf("expected storage error, got %v", err)
	}
}
