package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the actor kind encoded in the access token.
type Role string

const (
	RoleRider Role = "rider"
	RoleStore Role = "store"
	RoleAdmin Role = "admin"
)

// Identity is the session identity derived from the persisted login token.
// It is established once per process and is immutable for the lifetime of
// the relay connection.
type Identity struct {
	ID   string
	Role Role
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// ParseIdentity extracts the session identity from a backend-issued JWT.
// The signature is not verified here: the token is only trusted as a local
// record of who logged in, and the backend re-verifies it on every request.
func ParseIdentity(token string) (*Identity, error) {
	var c claims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &c); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if c.Subject == "" {
		return nil, fmt.Errorf("token has no subject claim")
	}
	role := Role(c.Role)
	switch role {
	case RoleRider, RoleStore, RoleAdmin:
	default:
		return nil, fmt.Errorf("token has unknown role %q", c.Role)
	}
	return &Identity{ID: c.Subject, Role: role}, nil
}
