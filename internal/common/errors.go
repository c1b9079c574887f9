// Package common holds sentinel errors shared across layers. Repositories
// and services return these; the HTTP layer maps them to status codes.
package common

import "errors"

var (

	// repository specific errors
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")

	// service specific errors
	ErrInternal     = errors.New("internal error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrValidation   = errors.New("validation error")

	// token specific errors
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
