package access

import "context"

type Repository interface {
	// GetAcceptedRole returns RoleNone with a nil error when the user has no
	// accepted collaborator row for the baby.
	GetAcceptedRole(ctx context.Context, babyID, userID string) (Role, error)
}
