package model

import (
	"time"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// User mirrors the identity provider's subject. The _id is the verified
// subject id, not a generated object id. The role is global: a user who
// admins any sauna is "admin" everywhere, which downstream gating relies on.
type User struct {
	ID        string    `json:"id" bson:"_id" validate:"required"`
	Email     string    `json:"email" bson:"email" validate:"required,email"`
	Name      string    `json:"name" bson:"name" validate:"omitempty,max=100"`
	Role      Role      `json:"role" bson:"role" validate:"required,oneof=admin user"`
	SaunaIDs  []string  `json:"sauna_ids" bson:"sauna_ids"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// HasAccess reports sauna membership.
func (u *User) HasAccess(saunaID string) bool {
	for _, id := range u.SaunaIDs {
		if id == saunaID {
			return true
		}
	}
	return false
}
