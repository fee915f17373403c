package services

import (
	"errors"
	"fmt"
)

// Not found
var (
	ErrExamNotFound    = errors.New("exam not found")
	ErrAttemptNotFound = errors.New("attempt not found")
)

// State conflicts
var (
	ErrExamNotAvailable        = errors.New("exam is not currently available")
	ErrAttemptLimitExceeded    = errors.New("maximum allowed attempts reached")
	ErrAttemptAlreadySubmitted = errors.New("attempt was already submitted")
	ErrAttemptTimeExpired      = errors.New("attempt time has expired")
	ErrConcurrentAttemptStart  = errors.New("attempt was started concurrently")
)

// ErrInvalidRequest marks malformed input that is not covered by struct tags
var ErrInvalidRequest = errors.New("invalid request")

// AttemptCapError reports the cap a student ran into; it matches
// ErrAttemptLimitExceeded with errors.Is.
type AttemptCapError struct {
	MaxAttempts int
	Attempts    int64
}

func (e *AttemptCapError) Error() string {
	return fmt.Sprintf("you have reached the maximum allowed attempts (%d)", e.MaxAttempts)
}

func (e *AttemptCapError) Is(target error) bool {
	return target == ErrAttemptLimitExceeded
}

// PermissionError is returned when a user acts on a resource they do not own
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
