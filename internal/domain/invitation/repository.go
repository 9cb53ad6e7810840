package invitation

import (
	"context"
	"time"

	"babytrack-go/internal/domain/access"
	"babytrack-go/internal/domain/baby"
)

type Repository interface {
	Transaction(ctx context.Context, fn func(Repository) error) error
	Create(ctx context.Context, invitation *Invitation) error
	GetByID(ctx context.Context, id string) (*Invitation, error)
	GetByToken(ctx context.Context, token string) (*Invitation, error)
	// GetByTokenForUpdate locks the row until the surrounding transaction ends.
	GetByTokenForUpdate(ctx context.Context, token string) (*Invitation, error)
	ListPendingByEmail(ctx context.Context, babyID, email string) ([]Invitation, error)
	ListPending(ctx context.Context, babyID string) ([]Invitation, error)
	Update(ctx context.Context, invitation *Invitation) error
	IsTokenTaken(ctx context.Context, token string) (bool, error)
	GetBabyName(ctx context.Context, babyID string) (string, error)
	GetCollaborator(ctx context.Context, babyID, userID string) (*baby.Collaborator, error)
	AddCollaborator(ctx context.Context, collaborator *baby.Collaborator) error
	ActivateCollaborator(ctx context.Context, collaboratorID string, role access.Role, invitedBy string, acceptedAt time.Time) error
}

// Notifier delivers the invitation link out of band. Delivery is best effort.
type Notifier interface {
	SendInvitation(ctx context.Context, message Message) error
}

type Message struct {
	To          string
	BabyName    string
	InviterName string
	Role        access.Role
	Link        string
	ExpiresAt   time.Time
}
