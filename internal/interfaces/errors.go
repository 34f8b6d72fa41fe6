package interfaces

import "errors"

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrUnknownRole     = errors.New("unknown role")
)
