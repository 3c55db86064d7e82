package service

import "errors"

var (
	// ErrNotFound means the entity id does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrValidation means a required body field is missing or empty.
	ErrValidation = errors.New("validation failed")
	// ErrUserRef means an assignment references a user that does not exist.
	ErrUserRef = errors.New("assignedUser not found")
	// ErrEmailTaken means the unique email constraint was violated.
	ErrEmailTaken = errors.New("email already exists")
)
