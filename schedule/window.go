package schedule

import "time"

// WithinSendWindow reports whether now falls inside the daily send
// window [startHour, endHour). Hours are in now's location.
func WithinSendWindow(now time.Time, startHour, endHour int) bool {
	h := now.Hour()
	return h >= startHour && h < endHour
}

// NextSendTime returns the earliest instant at or after now that falls
// inside the daily send window. Inside the window it returns now
// unchanged; before the window it returns today's start hour; past the
// window it rolls to tomorrow's start hour.
func NextSendTime(now time.Time, startHour, endHour int) time.Time {
	if WithinSendWindow(now, startHour, endHour) {
		return now
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), startHour, 0, 0, 0, now.Location())
	if now.Hour() >= endHour {
		start = start.AddDate(0, 0, 1)
	}
	return start
}
