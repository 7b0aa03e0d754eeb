// Package scheduler abstracts the delayed-delivery backend for booking
// reminders. Two backends exist: a Kafka hand-off to an external job runner
// for production, and an in-process gocron scheduler for development and
// single-node deployments.
package scheduler

import (
	"context"
	"time"
)

// Payload is what comes back when a reminder fires. NotificationID doubles as
// the cancellation handle.
type Payload struct {
	NotificationID string    `json:"notification_id"`
	BookingID      string    `json:"booking_id"`
	FireAt         time.Time `json:"fire_at"`
}

// Scheduler schedules a one-shot reminder. ScheduleAt returns an opaque
// handle usable with Cancel; both calls are fire-and-forget from the caller's
// perspective.
type Scheduler interface {
	ScheduleAt(ctx context.Context, fireAt time.Time, payload Payload) (string, error)
	Cancel(ctx context.Context, handle string) error
}
