package model

import (
	"time"
)

// Slot is one bookable interval of a sauna's day. Availability is derived
// from capacity, not from "zero bookings": a sauna with concurrency N keeps a
// slot available until N bookings overlap it.
type Slot struct {
	StartTime           time.Time `json:"start_time"`
	EndTime             time.Time `json:"end_time"`
	IsAvailable         bool      `json:"is_available"`
	CurrentBookingCount int       `json:"current_booking_count"`
}

// SlotLock is an advisory lock document serializing concurrent admissions for
// the same (sauna, slot start). The _id is derived from the slot coordinates
// so a second inserter hits the unique index.
type SlotLock struct {
	ID        string    `bson:"_id"`
	CreatedAt time.Time `bson:"created_at"`
	ExpiresAt time.Time `bson:"expires_at"`
}
