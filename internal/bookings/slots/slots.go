// Package slots turns a sauna's operating-hours configuration and its
// existing bookings into the day's bookable slots. Everything here is pure:
// callers load state, this package only computes. Results are never cached
// because booking state changes between reads.
package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"loyly/pkg/model"
)

// Generate walks the day-type's operating window in slot-duration steps and
// flags each slot's availability against the concurrency limit. An incomplete
// trailing slot is not generated. When date is today, slots that already
// started are excluded; a slot starting exactly at now counts as started,
// matching admission's strict-future rule.
func Generate(date time.Time, hours model.OperatingHours, slotDuration time.Duration, maxConcurrent int, bookings []*model.Booking, now time.Time) ([]model.Slot, error) {
	if slotDuration <= 0 {
		return nil, fmt.Errorf("slot duration must be positive, got %s", slotDuration)
	}
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("max concurrent bookings must be at least 1, got %d", maxConcurrent)
	}

	window := hours.HoursFor(date)
	windowStart, err := atWallClock(date, window.Start)
	if err != nil {
		return nil, err
	}
	windowEnd, err := atWallClock(date, window.End)
	if err != nil {
		return nil, err
	}
	if !windowEnd.After(windowStart) {
		return nil, fmt.Errorf("operating window end %q must be after start %q", window.End, window.Start)
	}

	sameDay := date.Year() == now.Year() && date.YearDay() == now.YearDay()

	var result []model.Slot
	for start := windowStart; ; start = start.Add(slotDuration) {
		end := start.Add(slotDuration)
		if end.After(windowEnd) {
			break
		}
		if sameDay && !start.After(now) {
			continue
		}

		count := countOverlapping(bookings, start, end)
		result = append(result, model.Slot{
			StartTime:           start,
			EndTime:             end,
			IsAvailable:         count < maxConcurrent,
			CurrentBookingCount: count,
		})
	}

	return result, nil
}

// countOverlapping counts active bookings intersecting [start, end) under
// half-open semantics: a booking ending exactly at start does not overlap.
func countOverlapping(bookings []*model.Booking, start, end time.Time) int {
	count := 0
	for _, b := range bookings {
		if b.Status != model.BookingActive {
			continue
		}
		if b.Overlaps(start, end) {
			count++
		}
	}
	return count
}

// atWallClock anchors an "HH:MM" wall-clock value onto the given date in the
// date's location. One server-wide timezone is assumed.
func atWallClock(date time.Time, wallClock string) (time.Time, error) {
	hour, minute, err := ParseWallClock(wallClock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location()), nil
}

// ParseWallClock validates and splits an "HH:MM" value.
func ParseWallClock(value string) (hour, minute int, err error) {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid wall-clock value %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in wall-clock value %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in wall-clock value %q", value)
	}
	return hour, minute, nil
}
