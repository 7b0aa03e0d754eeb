package validator

import (
	"testing"

	"loyly/pkg/model"
)

func validSauna() *model.Sauna {
	return &model.Sauna{
		Name:                "Lakeside",
		AdminID:             "auth0|admin",
		SlotDurationMinutes: 60,
		OperatingHours: model.OperatingHours{
			Weekday: model.TimeRange{Start: "09:00", End: "21:00"},
			Weekend: model.TimeRange{Start: "10:00", End: "18:00"},
		},
		MaxConcurrentBookings: 2,
		MaxTotalBookings:      5,
	}
}

func TestValidate_AcceptsValidSauna(t *testing.T) {
	v := NewSaunaValidator()
	if err := v.Validate(validSauna()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_SlotDurationBounds(t *testing.T) {
	tests := []struct {
		name      string
		minutes   int
		wantError bool
	}{
		{"below minimum", 15, true},
		{"at minimum", 30, false},
		{"at maximum", 180, false},
		{"above maximum", 240, true},
	}

	v := NewSaunaValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sauna := validSauna()
			sauna.SlotDurationMinutes = tt.minutes
			err := v.Validate(sauna)
			if tt.wantError && err == nil {
				t.Errorf("expected error for %d minutes", tt.minutes)
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error for %d minutes: %v", tt.minutes, err)
			}
		})
	}
}

func TestValidate_WallClockFormat(t *testing.T) {
	tests := []struct {
		name      string
		start     string
		end       string
		wantError bool
	}{
		{"valid range", "09:00", "18:00", false},
		{"no leading zero", "9:00", "18:00", false},
		{"invalid hour", "25:00", "18:00", true},
		{"invalid minute", "09:60", "18:00", true},
		{"wrong separator", "09-00", "18:00", true},
		{"end before start", "18:00", "09:00", true},
		{"end equals start", "09:00", "09:00", true},
	}

	v := NewSaunaValidator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sauna := validSauna()
			sauna.OperatingHours.Weekday = model.TimeRange{Start: tt.start, End: tt.end}
			err := v.Validate(sauna)
			if tt.wantError && err == nil {
				t.Errorf("expected error for range %s-%s", tt.start, tt.end)
			}
			if !tt.wantError && err != nil {
				t.Errorf("unexpected error for range %s-%s: %v", tt.start, tt.end, err)
			}
		})
	}
}

func TestValidate_RequiredFields(t *testing.T) {
	v := NewSaunaValidator()

	sauna := validSauna()
	sauna.Name = ""
	if err := v.Validate(sauna); err == nil {
		t.Error("expected error for missing name")
	}

	sauna = validSauna()
	sauna.MaxConcurrentBookings = 0
	if err := v.Validate(sauna); err == nil {
		t.Error("expected error for zero concurrency cap")
	}
}

func TestValidateUpdate_PartialUpdates(t *testing.T) {
	v := NewSaunaValidator()

	if err := v.ValidateUpdate(&model.SaunaUpdate{}); err != nil {
		t.Errorf("empty update must validate, got %v", err)
	}

	bad := 10
	if err := v.ValidateUpdate(&model.SaunaUpdate{SlotDurationMinutes: &bad}); err == nil {
		t.Error("expected error for out-of-range slot duration")
	}

	inverted := &model.OperatingHours{
		Weekday: model.TimeRange{Start: "18:00", End: "09:00"},
		Weekend: model.TimeRange{Start: "10:00", End: "18:00"},
	}
	if err := v.ValidateUpdate(&model.SaunaUpdate{OperatingHours: inverted}); err == nil {
		t.Error("expected error for inverted window in update")
	}
}
