package model

import (
	"time"
)

type InviteStatus string

const (
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteExpired  InviteStatus = "expired"
)

// InviteTTL is how long a pending invite stays actionable.
const InviteTTL = 7 * 24 * time.Hour

type Invite struct {
	ID        string       `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	SaunaID   string       `json:"sauna_id" bson:"sauna_id" validate:"required,mongodb"`
	Email     string       `json:"email" bson:"email" validate:"required,email"`
	InviterID string       `json:"inviter_id" bson:"inviter_id" validate:"required"`
	Status    InviteStatus `json:"status" bson:"status" validate:"required,oneof=pending accepted expired"`
	ExpiresAt time.Time    `json:"expires_at" bson:"expires_at" validate:"required"`
	CreatedAt time.Time    `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// Lapsed reports whether a pending invite has outlived its expiry without an
// explicit state change.
func (i *Invite) Lapsed(now time.Time) bool {
	return i.Status == InvitePending && now.After(i.ExpiresAt)
}
