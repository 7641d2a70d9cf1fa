package schedule

import (
	"context"
	"time"
)

// WindowState is the derived view of the ordering schedule at one instant.
// When Open is false, WindowStart holds the next opening time and Cutoff is zero.
type WindowState struct {
	Open             bool      `json:"is_open"`
	WindowStart      time.Time `json:"window_start"`
	Cutoff           time.Time `json:"order_cutoff,omitzero"`
	SecondsRemaining int       `json:"seconds_remaining"`
	DisplayLabel     string    `json:"display_label"`
	WindowLabel      string    `json:"window_label"`
	CutoffLabel      string    `json:"cutoff_label,omitempty"`
}

// Countdown renders SecondsRemaining as MM:SS.
func (w WindowState) Countdown() string {
	return FormatCountdown(w.SecondsRemaining)
}

// Scheduler computes WindowState values for a validated policy.
type Scheduler struct {
	policy OperatingPolicy
}

// New validates policy and returns a Scheduler bound to it.
func New(policy OperatingPolicy) (*Scheduler, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	policy.WindowOffsets = append([]int(nil), policy.WindowOffsets...)
	return &Scheduler{policy: policy}, nil
}

// Policy returns a copy of the configured policy.
func (s *Scheduler) Policy() OperatingPolicy {
	p := s.policy
	p.WindowOffsets = append([]int(nil), s.policy.WindowOffsets...)
	return p
}

// Compute returns the window state at now. It is pure: equal inputs give equal outputs.
func (s *Scheduler) Compute(now time.Time) WindowState {
	now = s.in(now)
	p := s.policy
	loc := now.Location()
	y, m, d := now.Date()
	hour := now.Hour()

	if hour < p.OpenHour || hour >= p.CloseHour {
		next := time.Date(y, m, d, p.OpenHour, 0, 0, 0, loc)
		if hour >= p.CloseHour {
			next = time.Date(y, m, d+1, p.OpenHour, 0, 0, 0, loc)
		}
		label := FormatClock(next)
		return WindowState{
			Open:             false,
			WindowStart:      next,
			SecondsRemaining: secondsUntil(now, next),
			DisplayLabel:     label,
			WindowLabel:      label,
		}
	}

	start := s.nextStart(now)
	if start.Hour() >= p.CloseHour || start.Day() != d {
		// No window may open after closing; use the first slot of the next operating day.
		start = time.Date(y, m, d+1, p.OpenHour, p.WindowOffsets[0], 0, 0, loc)
	}
	cutoff := start.Add(time.Duration(p.CutoffMinutes) * time.Minute)

	state := WindowState{
		Open:             true,
		WindowStart:      start,
		Cutoff:           cutoff,
		SecondsRemaining: secondsUntil(now, start),
		WindowLabel:      FormatClock(start),
		CutoffLabel:      FormatClock(cutoff),
	}
	state.DisplayLabel = state.WindowLabel + " - " + state.CutoffLabel
	return state
}

// Accepting reports whether now falls inside an ordering window [start, cutoff)
// that opened during operating hours. start and cutoff describe the most recent window.
func (s *Scheduler) Accepting(now time.Time) (start, cutoff time.Time, ok bool) {
	now = s.in(now)
	p := s.policy
	top := topOfHour(now)
	minute := now.Minute()

	found := false
	for i := len(p.WindowOffsets) - 1; i >= 0; i-- {
		if p.WindowOffsets[i] <= minute {
			start = top.Add(time.Duration(p.WindowOffsets[i]) * time.Minute)
			found = true
			break
		}
	}
	if !found {
		start = top.Add(time.Duration(p.WindowOffsets[len(p.WindowOffsets)-1])*time.Minute - time.Hour)
	}
	cutoff = start.Add(time.Duration(p.CutoffMinutes) * time.Minute)
	if start.Hour() < p.OpenHour || start.Hour() >= p.CloseHour {
		return start, cutoff, false
	}
	return start, cutoff, now.Before(cutoff)
}

// DeliverySlot returns the window an order placed at now belongs to: the
// window still accepting orders, otherwise the next one. ok is false while
// ordering is closed.
func (s *Scheduler) DeliverySlot(now time.Time) (slot time.Time, ok bool) {
	if start, _, accepting := s.Accepting(now); accepting {
		return start, true
	}
	state := s.Compute(now)
	if !state.Open {
		return time.Time{}, false
	}
	return state.WindowStart, true
}

// Run emits the state for now() immediately and then on every tick until ctx is done.
func Run(ctx context.Context, s *Scheduler, interval time.Duration, now func() time.Time, emit func(WindowState)) error {
	if interval <= 0 {
		interval = time.Second
	}
	if now == nil {
		now = time.Now
	}
	emit(s.Compute(now()))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			emit(s.Compute(now()))
		}
	}
}

func (s *Scheduler) in(now time.Time) time.Time {
	if s.policy.Location != nil {
		return now.In(s.policy.Location)
	}
	return now
}

// nextStart finds the first window start strictly after now, possibly in the next hour.
// The next hour is reached by elapsed time from the top of the current one so a
// skipped wall-clock hour cannot yield a start before now.
func (s *Scheduler) nextStart(now time.Time) time.Time {
	top := topOfHour(now)
	minute := now.Minute()
	for _, off := range s.policy.WindowOffsets {
		if off > minute {
			return top.Add(time.Duration(off) * time.Minute)
		}
	}
	return top.Add(time.Hour + time.Duration(s.policy.WindowOffsets[0])*time.Minute)
}

// topOfHour steps back by elapsed time, which stays correct inside a repeated hour.
func topOfHour(t time.Time) time.Time {
	into := time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second + time.Duration(t.Nanosecond())
	return t.Add(-into)
}

func secondsUntil(now, target time.Time) int {
	diff := target.Sub(now)
	if diff <= 0 {
		return 0
	}
	return int(diff / time.Second)
}
