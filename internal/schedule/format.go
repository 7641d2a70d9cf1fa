package schedule

import (
	"fmt"
	"time"
)

// FormatClock renders t as a 12-hour clock time, e.g. "5:25 PM".
func FormatClock(t time.Time) string {
	return t.Format("3:04 PM")
}

// FormatCountdown renders seconds as MM:SS. Minutes keep growing past 59.
func FormatCountdown(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
