package schedule

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPolicy is returned by New when an OperatingPolicy breaks one of its invariants.
var ErrInvalidPolicy = errors.New("invalid operating policy")

// OperatingPolicy describes daily operating hours and the recurring ordering windows inside them.
type OperatingPolicy struct {
	OpenHour      int
	CloseHour     int // exclusive
	WindowOffsets []int
	CutoffMinutes int
	// Location overrides the zone carried by now. Nil keeps it.
	Location *time.Location
}

// DefaultPolicy is the 11am-10pm schedule with windows opening at :25 and :55.
func DefaultPolicy() OperatingPolicy {
	return OperatingPolicy{
		OpenHour:      11,
		CloseHour:     22,
		WindowOffsets: []int{25, 55},
		CutoffMinutes: 5,
	}
}

// Validate checks the policy invariants.
func (p OperatingPolicy) Validate() error {
	if p.OpenHour < 0 || p.OpenHour > 23 {
		return fmt.Errorf("%w: open hour %d out of range", ErrInvalidPolicy, p.OpenHour)
	}
	if p.CloseHour < 0 || p.CloseHour > 23 {
		return fmt.Errorf("%w: close hour %d out of range", ErrInvalidPolicy, p.CloseHour)
	}
	if p.OpenHour >= p.CloseHour {
		return fmt.Errorf("%w: open hour %d must be before close hour %d", ErrInvalidPolicy, p.OpenHour, p.CloseHour)
	}
	if len(p.WindowOffsets) == 0 {
		return fmt.Errorf("%w: at least one window offset is required", ErrInvalidPolicy)
	}
	prev := -1
	for _, off := range p.WindowOffsets {
		if off < 0 || off > 59 {
			return fmt.Errorf("%w: window offset %d out of range", ErrInvalidPolicy, off)
		}
		if off <= prev {
			return fmt.Errorf("%w: window offsets must be strictly increasing", ErrInvalidPolicy)
		}
		prev = off
	}
	if p.CutoffMinutes < 0 || p.CutoffMinutes > 60 {
		return fmt.Errorf("%w: cutoff %d minutes out of range", ErrInvalidPolicy, p.CutoffMinutes)
	}
	return nil
}
