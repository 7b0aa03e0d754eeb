package model

import (
	"time"
)

type BookingStatus string

const (
	BookingActive          BookingStatus = "active"
	BookingCompleted       BookingStatus = "completed"
	BookingCancelled       BookingStatus = "cancelled"
	BookingEarlyCompletion BookingStatus = "early_completion"
)

type Booking struct {
	ID        string        `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	SaunaID   string        `json:"sauna_id" bson:"sauna_id" validate:"required,mongodb"`
	UserID    string        `json:"user_id" bson:"user_id" validate:"required"`
	StartTime time.Time     `json:"start_time" bson:"start_time" validate:"required"`
	EndTime   time.Time     `json:"end_time" bson:"end_time" validate:"required,gtfield=StartTime"`
	Status    BookingStatus `json:"status" bson:"status" validate:"required,oneof=active completed cancelled early_completion"`
	// ReminderID is the handle returned by the reminder scheduler, empty when
	// no reminder was scheduled.
	ReminderID string    `json:"reminder_id,omitempty" bson:"reminder_id,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// EffectiveStatus derives completed lazily: an active booking whose end time
// has passed reads as completed without an eager write.
func (b *Booking) EffectiveStatus(now time.Time) BookingStatus {
	if b.Status == BookingActive && !b.EndTime.After(now) {
		return BookingCompleted
	}
	return b.Status
}

// Overlaps reports half-open interval intersection: touching endpoints do not
// overlap.
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}
