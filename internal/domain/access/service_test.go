package access

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeRoleRepo struct {
	roles map[string]Role
	calls int
	err   error
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: make(map[string]Role)}
}

func (r *fakeRoleRepo) GetAcceptedRole(ctx context.Context, babyID, userID string) (Role, error) {
	r.calls++
	if r.err != nil {
		return RoleNone, r.err
	}
	return r.roles[babyID+"/"+userID], nil
}

type fakeCache struct {
	items map[string]Role
}

func (c *fakeCache) Get(babyID, userID string) (Role, bool) {
	role, ok := c.items[babyID+"/"+userID]
	return role, ok
}

func (c *fakeCache) Set(babyID, userID string, role Role, ttl time.Duration) {
	c.items[babyID+"/"+userID] = role
}

func (c *fakeCache) Delete(babyID, userID string) {
	delete(c.items, babyID+"/"+userID)
}

func (c *fakeCache) DeleteBaby(babyID string) {
	for key := range c.items {
		if len(key) > len(babyID) && key[:len(babyID)+1] == babyID+"/" {
			delete(c.items, key)
		}
	}
}

func TestResolveRoleNoRowIsNone(t *testing.T) {
	resolver := NewResolver(newFakeRoleRepo(), nil, 0)

	role, err := resolver.ResolveRole(context.Background(), "baby-1", "stranger")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if role != RoleNone {
		t.Fatalf("expected RoleNone, got %s", role)
	}
	if _, err := resolver.RequireAccess(context.Background(), "baby-1", "stranger"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestRequireEditorDeniesViewer(t *testing.T) {
	repo := newFakeRoleRepo()
	repo.roles["baby-1/viewer"] = RoleViewer
	repo.roles["baby-1/editor"] = RoleEditor
	repo.roles["baby-1/owner"] = RoleOwner
	resolver := NewResolver(repo, nil, 0)

	if _, err := resolver.RequireEditor(context.Background(), "baby-1", "viewer"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected viewer denied, got %v", err)
	}
	if _, err := resolver.RequireEditor(context.Background(), "baby-1", "editor"); err != nil {
		t.Fatalf("expected editor allowed, got %v", err)
	}
	if _, err := resolver.RequireOwner(context.Background(), "baby-1", "editor"); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected editor denied owner action, got %v", err)
	}
	role, err := resolver.RequireOwner(context.Background(), "baby-1", "owner")
	if err != nil || role != RoleOwner {
		t.Fatalf("expected owner, got %s (%v)", role, err)
	}
}

func TestResolveRolePropagatesStoreError(t *testing.T) {
	repo := newFakeRoleRepo()
	repo.err = errors.New("boom")
	resolver := NewResolver(repo, nil, 0)

	if _, err := resolver.RequireEditor(context.Background(), "baby-1", "user"); err == nil || errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestResolveRoleCachesUntilForgotten(t *testing.T) {
	repo := newFakeRoleRepo()
	repo.roles["baby-1/user"] = RoleEditor
	cache := &fakeCache{items: make(map[string]Role)}
	resolver := NewResolver(repo, cache, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := resolver.ResolveRole(context.Background(), "baby-1", "user"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	}
	if repo.calls != 1 {
		t.Fatalf("expected one store call, got %d", repo.calls)
	}

	repo.roles["baby-1/user"] = RoleViewer
	resolver.Forget("baby-1", "user")
	role, _ := resolver.ResolveRole(context.Background(), "baby-1", "user")
	if role != RoleViewer {
		t.Fatalf("expected fresh role after forget, got %s", role)
	}
}

func TestResolveRoleDoesNotCacheMissingAccess(t *testing.T) {
	repo := newFakeRoleRepo()
	cache := &fakeCache{items: make(map[string]Role)}
	resolver := NewResolver(repo, cache, time.Minute)

	_, _ = resolver.ResolveRole(context.Background(), "baby-1", "user")
	repo.roles["baby-1/user"] = RoleEditor
	role, _ := resolver.ResolveRole(context.Background(), "baby-1", "user")
	if role != RoleEditor {
		t.Fatalf("expected newly granted role, got %s", role)
	}
}

func TestCheckRoleChange(t *testing.T) {
	cases := []struct {
		name    string
		actor   string
		target  string
		current Role
		next    Role
		want    error
	}{
		{name: "promote to owner", actor: "o", target: "e", current: RoleEditor, next: RoleOwner, want: ErrOwnerNotAssignable},
		{name: "demote owner", actor: "o", target: "o2", current: RoleOwner, next: RoleViewer, want: ErrOwnerImmutable},
		{name: "self change", actor: "o", target: "o", current: RoleOwner, next: RoleEditor, want: ErrSelfRoleChange},
		{name: "unknown role", actor: "o", target: "e", current: RoleEditor, next: Role("admin"), want: ErrUnknownRole},
		{name: "editor to viewer", actor: "o", target: "e", current: RoleEditor, next: RoleViewer},
		{name: "viewer to editor", actor: "o", target: "v", current: RoleViewer, next: RoleEditor},
	}

	for _, tc := range cases {
		err := CheckRoleChange(tc.actor, tc.target, tc.current, tc.next)
		if tc.want == nil && err != nil {
			t.Fatalf("%s: expected no error, got %v", tc.name, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestRoleScanRejectsUnknownValues(t *testing.T) {
	var role Role
	if err := role.Scan("editor"); err != nil || role != RoleEditor {
		t.Fatalf("expected editor, got %s (%v)", role, err)
	}
	if err := role.Scan([]byte("OWNER")); err != nil || role != RoleOwner {
		t.Fatalf("expected owner, got %s (%v)", role, err)
	}
	if err := role.Scan("admin"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}
	if err := role.Scan(nil); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole for null, got %v", err)
	}
	if _, err := Role("").Value(); err == nil {
		t.Fatalf("expected RoleNone to be unstorable")
	}
}

func TestCanEdit(t *testing.T) {
	if !CanEdit(RoleOwner) || !CanEdit(RoleEditor) || CanEdit(RoleViewer) || CanEdit(RoleNone) {
		t.Fatalf("unexpected CanEdit matrix")
	}
	if !CanManageCollaborators(RoleOwner) || CanManageCollaborators(RoleEditor) {
		t.Fatalf("unexpected CanManageCollaborators matrix")
	}
}
