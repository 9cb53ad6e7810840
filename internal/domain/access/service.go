package access

import (
	"context"
	"time"
)

// Resolver answers "what may this user do with this baby". It is the single
// authority every mutating service consults before touching the store.
type Resolver struct {
	repo  Repository
	cache Cache
	ttl   time.Duration
}

// NewResolver builds a resolver. A nil cache or a non-positive ttl disables
// caching, so every check reads the collaborator table.
func NewResolver(repo Repository, cache Cache, ttl time.Duration) *Resolver {
	if cache == nil || ttl <= 0 {
		cache = noopCache{}
	}
	return &Resolver{repo: repo, cache: cache, ttl: ttl}
}

func (r *Resolver) ResolveRole(ctx context.Context, babyID, userID string) (Role, error) {
	if babyID == "" || userID == "" {
		return RoleNone, nil
	}
	if role, ok := r.cache.Get(babyID, userID); ok {
		return role, nil
	}

	role, err := r.repo.GetAcceptedRole(ctx, babyID, userID)
	if err != nil {
		return RoleNone, err
	}
	if role != RoleNone {
		r.cache.Set(babyID, userID, role, r.ttl)
	}
	return role, nil
}

// RequireAccess fails with ErrPermissionDenied unless the user holds any role.
func (r *Resolver) RequireAccess(ctx context.Context, babyID, userID string) (Role, error) {
	return r.require(ctx, babyID, userID, func(role Role) bool { return role != RoleNone })
}

func (r *Resolver) RequireEditor(ctx context.Context, babyID, userID string) (Role, error) {
	return r.require(ctx, babyID, userID, CanEdit)
}

func (r *Resolver) RequireOwner(ctx context.Context, babyID, userID string) (Role, error) {
	return r.require(ctx, babyID, userID, CanManageCollaborators)
}

// Forget drops any cached role for the pair. Called after every collaborator
// mutation.
func (r *Resolver) Forget(babyID, userID string) {
	r.cache.Delete(babyID, userID)
}

func (r *Resolver) ForgetBaby(babyID string) {
	r.cache.DeleteBaby(babyID)
}

func (r *Resolver) require(ctx context.Context, babyID, userID string, allowed func(Role) bool) (Role, error) {
	role, err := r.ResolveRole(ctx, babyID, userID)
	if err != nil {
		return RoleNone, err
	}
	if !allowed(role) {
		return role, ErrPermissionDenied
	}
	return role, nil
}

// CheckRoleChange validates an owner's request to set target's role to
// newRole. Owners are never demoted and nobody changes their own role, which
// keeps at least one owner on every baby.
func CheckRoleChange(actorID, targetUserID string, current, newRole Role) error {
	if newRole == RoleOwner {
		return ErrOwnerNotAssignable
	}
	if !newRole.Valid() {
		return ErrUnknownRole
	}
	if actorID == targetUserID {
		return ErrSelfRoleChange
	}
	if current == RoleOwner {
		return ErrOwnerImmutable
	}
	return nil
}
