package models

import "github.com/google/uuid"

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
	RoleBuyer  Role = "buyer"
)

// Principal is the authenticated caller extracted from a bearer token.
type Principal struct {
	AccountID uuid.UUID `json:"sub"`
	Role      Role      `json:"role"`
	TokenID   string    `json:"jti,omitempty"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
