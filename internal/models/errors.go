package models

import "fmt"

// ValidationError reports a missing or malformed request field
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NotFoundError reports an identifier that does not resolve to an entity
type NotFoundError struct {
	Entity  string
	ID      int64
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

func NewNotFound(entity string, id int64, message string) error {
	return &NotFoundError{Entity: entity, ID: id, Message: message}
}
