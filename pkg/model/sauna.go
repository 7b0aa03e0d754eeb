package model

import (
	"time"
)

// TimeRange is a wall-clock range in the server timezone, "HH:MM" format.
type TimeRange struct {
	Start string `json:"start" bson:"start" validate:"required,wallclock"`
	End   string `json:"end" bson:"end" validate:"required,wallclock"`
}

// OperatingHours carries separate windows for weekdays and weekends.
type OperatingHours struct {
	Weekday TimeRange `json:"weekday" bson:"weekday" validate:"required"`
	Weekend TimeRange `json:"weekend" bson:"weekend" validate:"required"`
}

type Sauna struct {
	ID                   string         `json:"id,omitempty" bson:"_id,omitempty" validate:"omitempty,mongodb"`
	AdminID              string         `json:"admin_id" bson:"admin_id" validate:"omitempty"`
	Name                 string         `json:"name" bson:"name" validate:"required,min=2,max=100"`
	Description          string         `json:"description,omitempty" bson:"description,omitempty" validate:"omitempty,max=500"`
	Location             string         `json:"location,omitempty" bson:"location,omitempty" validate:"omitempty,max=200"`
	SlotDurationMinutes  int            `json:"slot_duration_minutes" bson:"slot_duration_minutes" validate:"required,min=30,max=180"`
	OperatingHours       OperatingHours `json:"operating_hours" bson:"operating_hours" validate:"required"`
	MaxConcurrentBookings int           `json:"max_concurrent_bookings" bson:"max_concurrent_bookings" validate:"required,min=1,max=50"`
	MaxTotalBookings     int            `json:"max_total_bookings" bson:"max_total_bookings" validate:"required,min=1,max=50"`
	CreatedAt            time.Time      `json:"created_at" bson:"created_at" validate:"omitempty"`
}

// SaunaUpdate carries the mutable subset of a sauna. Nil / zero fields are
// left untouched by the merge.
type SaunaUpdate struct {
	Name                  string          `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Description           *string         `json:"description,omitempty" validate:"omitempty,max=500"`
	Location              *string         `json:"location,omitempty" validate:"omitempty,max=200"`
	SlotDurationMinutes   *int            `json:"slot_duration_minutes,omitempty" validate:"omitempty,min=30,max=180"`
	OperatingHours        *OperatingHours `json:"operating_hours,omitempty"`
	MaxConcurrentBookings *int            `json:"max_concurrent_bookings,omitempty" validate:"omitempty,min=1,max=50"`
	MaxTotalBookings      *int            `json:"max_total_bookings,omitempty" validate:"omitempty,min=1,max=50"`
}

// HoursFor picks the weekday or weekend window for the given date.
func (o OperatingHours) HoursFor(date time.Time) TimeRange {
	switch date.Weekday() {
	case time.Saturday, time.Sunday:
		return o.Weekend
	default:
		return o.Weekday
	}
}
