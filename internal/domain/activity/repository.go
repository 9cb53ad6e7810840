package activity

import "context"

type Repository interface {
	// List returns the newest entries first.
	List(ctx context.Context, babyID string, limit int) ([]Entry, error)
}
