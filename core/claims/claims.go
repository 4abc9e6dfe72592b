// Package claims carries the authenticated caller through a request.
// Every core operation receives the caller explicitly from here.
package claims

import (
	"context"
	"errors"
)

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// ErrMissing is returned when no caller is attached to the context.
var ErrMissing = errors.New("claim value missing from context")

type Claims struct {
	UserID string
	Email  string
	Role   string
}

func (c Claims) IsAdmin() bool { return c.Role == RoleAdmin }

type ctxKey int

const claimsKey ctxKey = 1

func Set(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func Get(ctx context.Context) (Claims, error) {
	v, ok := ctx.Value(claimsKey).(Claims)
	if !ok {
		return Claims{}, ErrMissing
	}
	return v, nil
}
