package config

import (
	"fmt"
	"time"

	"github.com/treehouse/treehouse/internal/schedule"
)

// Policy converts the schedule section into a scheduler policy, resolving the timezone.
func (s ScheduleConfig) Policy() (schedule.OperatingPolicy, error) {
	policy := schedule.OperatingPolicy{
		OpenHour:      s.OpenHour,
		CloseHour:     s.CloseHour,
		WindowOffsets: append([]int(nil), s.WindowOffsets...),
		CutoffMinutes: s.CutoffMinutes,
	}
	if s.Timezone != "" {
		loc, err := time.LoadLocation(s.Timezone)
		if err != nil {
			return schedule.OperatingPolicy{}, fmt.Errorf("invalid timezone: %w", err)
		}
		policy.Location = loc
	}
	return policy, nil
}
