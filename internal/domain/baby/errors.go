package baby

import "errors"

var (
	ErrBabyNotFound         = errors.New("baby not found")
	ErrCollaboratorNotFound = errors.New("collaborator not found")
	ErrCannotRemoveOwner    = errors.New("cannot remove owner")
	ErrOwnerCannotLeave     = errors.New("owner cannot leave baby")
)
