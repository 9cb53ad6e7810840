package validation

import "fmt"

// Error reports malformed caller input. It is recoverable: the caller fixes
// the named field and submits again.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func New(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

func Newf(field, format string, args ...any) *Error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

// OneOf fails unless value is one of allowed.
func OneOf[T ~string](field string, value T, allowed ...T) error {
	for _, candidate := range allowed {
		if value == candidate {
			return nil
		}
	}
	return Newf(field, "must be one of %v", allowed)
}
