package access

import "errors"

var (
	ErrPermissionDenied   = errors.New("permission denied")
	ErrUnknownRole        = errors.New("unknown role")
	ErrOwnerNotAssignable = errors.New("owner role cannot be assigned")
	ErrOwnerImmutable     = errors.New("owner role cannot be changed")
	ErrSelfRoleChange     = errors.New("cannot change own role")
)
