package models

import (
	"errors"
	"fmt"
)

var (
	ErrTaskNotFound     = errors.New("task not found")
	ErrCategoryNotFound = errors.New("category not found")
)

// NotFoundError reports a missing record. It unwraps to the resource's
// sentinel so callers can match with errors.Is(err, ErrTaskNotFound).
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

func TaskNotFound(id string) error {
	return &NotFoundError{Resource: "task", ID: id, Err: ErrTaskNotFound}
}

func CategoryNotFound(id string) error {
	return &NotFoundError{Resource: "category", ID: id, Err: ErrCategoryNotFound}
}
