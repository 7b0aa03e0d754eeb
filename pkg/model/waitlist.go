package model

import (
	"time"
)

// WaitlistEntry queues a user for a specific (sauna, slot start) pair.
// Ordering is FIFO by CreatedAt with object-id insertion order breaking ties.
type WaitlistEntry struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	SaunaID   string    `json:"sauna_id" bson:"sauna_id" validate:"required,mongodb"`
	UserID    string    `json:"user_id" bson:"user_id" validate:"required"`
	SlotTime  time.Time `json:"slot_time" bson:"slot_time" validate:"required"`
	// BookingID references the booking occupying the slot at join time.
	BookingID string    `json:"booking_id" bson:"booking_id" validate:"required,mongodb"`
	Notified  bool      `json:"notified" bson:"notified"`
	CreatedAt time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// WaitlistStatus is an entry plus its derived 1-based queue position.
type WaitlistStatus struct {
	Entry    WaitlistEntry `json:"entry"`
	Position int64         `json:"position"`
}
