package auth

import (
	"context"
	"errors"
	"net/http"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOfficial Role = "official"
)

var ErrPermissionDenied = errors.New("permission denied")

type Principal interface {
	Name() string
}

type Authentication interface {
	Principal() Principal
	Roles() []Role
	// Anonymous reports whether the caller presented no verifiable identity.
	Anonymous() bool
}

// AuthenticationProvider resolves an Authentication from request headers.
// Returning (nil, nil) means "not mine, ask the next provider".
type AuthenticationProvider interface {
	Authenticate(ctx context.Context, h http.Header) (Authentication, error)
}

type authContextKey struct{}

func AddAuthToContext(ctx context.Context, a Authentication) context.Context {
	return context.WithValue(ctx, authContextKey{}, a)
}

func FromContext(ctx context.Context) Authentication {
	if a, ok := ctx.Value(authContextKey{}).(Authentication); ok {
		return a
	}
	return nil
}
