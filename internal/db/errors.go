package db

import (
	"context"
	"errors"
)

// StoreError marks a failure of the record store itself (connection, query,
// constraint the domain did not anticipate). Callers surface it generically
// and leave retrying to the user.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return "store: " + e.Op + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// Store wraps err as a StoreError unless it is nil, a context cancellation or
// one of the passthrough domain errors.
func Store(op string, err error, passthrough ...error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	for _, target := range passthrough {
		if errors.Is(err, target) {
			return err
		}
	}
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

func IsStoreError(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}
