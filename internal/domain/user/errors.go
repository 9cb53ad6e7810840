package user

import "errors"

var (
	ErrUserIDRequired  = errors.New("user id is required")
	ErrProfileNotFound = errors.New("profile not found")
)
