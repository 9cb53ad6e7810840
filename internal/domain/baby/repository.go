package baby

import (
	"context"

	"babytrack-go/internal/domain/access"
)

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	CreateBaby(ctx context.Context, baby *Baby) error
	GetBaby(ctx context.Context, babyID string) (*Baby, error)
	// ListBabiesForUser returns babies with an accepted collaborator row for
	// userID, most recently created first.
	ListBabiesForUser(ctx context.Context, userID string) ([]BabyWithRole, error)
	UpdateBaby(ctx context.Context, baby *Baby) error
	DeleteBaby(ctx context.Context, babyID string) error
	AddCollaborator(ctx context.Context, collaborator *Collaborator) error
	GetCollaborator(ctx context.Context, babyID, userID string) (*Collaborator, error)
	ListCollaborators(ctx context.Context, babyID string) ([]CollaboratorProfile, error)
	UpdateCollaboratorRole(ctx context.Context, babyID, userID string, role access.Role) error
	DeleteCollaborator(ctx context.Context, babyID, userID string) error
}
