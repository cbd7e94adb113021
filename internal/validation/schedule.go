package validation

import (
	"fmt"
	"strings"
)

// ScheduleInput carries the fields required to create a schedule.
// Description is optional; everything else is required.
type ScheduleInput struct {
	Title    string
	GameName string
	Time     string
	Date     string
	Place    string
}

// ValidateSchedule checks that all required schedule fields are non-empty.
func ValidateSchedule(in ScheduleInput) error {
	required := []struct {
		name  string
		value string
	}{
		{"title", in.Title},
		{"game name", in.GameName},
		{"time", in.Time},
		{"date", in.Date},
		{"place", in.Place},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%s is required", f.name)
		}
	}
	return nil
}
