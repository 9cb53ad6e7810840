package records

import "context"

type Repository[T any] interface {
	List(ctx context.Context, babyID string, filter Filter) ([]T, error)
	// Get and Delete match on both id and baby id, so an id belonging to
	// another baby is ErrRecordNotFound.
	Get(ctx context.Context, babyID, id string) (*T, error)
	Create(ctx context.Context, item *T) error
	Update(ctx context.Context, item *T) error
	Delete(ctx context.Context, babyID, id string) error
}
