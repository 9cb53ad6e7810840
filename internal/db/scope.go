package db

import (
	"context"
	"strings"

	"gorm.io/gorm"
)

// Identity is what row-level security policies see for the current statement.
type Identity struct {
	UserID string
	Email  string
}

type identityKey struct{}

type serviceKey struct{}

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(Identity)
	return identity, ok && identity.UserID != ""
}

// WithService marks ctx as acting for the application itself rather than a
// caller. Policies let service statements through; use it only for lookups
// that happen before a caller has access (invitation preview) and for
// operator tooling.
func WithService(ctx context.Context) context.Context {
	return context.WithValue(ctx, serviceKey{}, true)
}

func isService(ctx context.Context) bool {
	service, _ := ctx.Value(serviceKey{}).(bool)
	return service
}

// Scoped runs fn in a transaction whose settings carry the caller identity
// (app.user_id, app.user_email) or the service marker found in ctx. A ctx
// with neither runs unscoped and RLS denies every baby-owned row.
func Scoped(ctx context.Context, conn *gorm.DB, fn func(tx *gorm.DB) error) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := applyScope(ctx, tx); err != nil {
			return err
		}
		return fn(tx)
	})
}

func applyScope(ctx context.Context, tx *gorm.DB) error {
	if identity, ok := IdentityFromContext(ctx); ok {
		if err := tx.Exec(
			"SELECT set_config('app.user_id', ?, true), set_config('app.user_email', ?, true)",
			identity.UserID, strings.ToLower(identity.Email),
		).Error; err != nil {
			return err
		}
	}
	if isService(ctx) {
		if err := tx.Exec("SELECT set_config('app.role', 'service', true)").Error; err != nil {
			return err
		}
	}
	return nil
}
