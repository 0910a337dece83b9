package auth

import "errors"

var (
	// ErrUnauthorized means the request carried no bearer token.
	ErrUnauthorized = errors.New("auth: unauthorized")
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTenantMismatch indicates the token belongs to a different tenant.
	ErrTenantMismatch = errors.New("auth: tenant mismatch")
)
