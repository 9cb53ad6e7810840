package invitation

import "errors"

var (
	ErrInvitationNotFound    = errors.New("invitation not found")
	ErrInvitationExpired     = errors.New("invitation expired")
	ErrInvitationNotPending  = errors.New("invitation is not pending")
	ErrInvitationExists      = errors.New("pending invitation already exists")
	ErrEmailMismatch         = errors.New("invitation email does not match signed-in user")
	ErrTokenGenerationFailed = errors.New("invitation token generation failed")
)
