package service

import "time"

// DefaultUploadGraceDays is how long after the internship ends a diary may
// still be uploaded.
const DefaultUploadGraceDays = 5

// Window evaluates an internship's active period and the diary upload grace
// period that follows it. It is a pure value; "now" is always supplied by the
// caller so tests can pin the clock.
type Window struct {
	Start     time.Time
	End       time.Time
	GraceDays int
}

// NewWindow builds a window with the configured grace period.
func NewWindow(start, end time.Time, graceDays int) Window {
	if graceDays <= 0 {
		graceDays = DefaultUploadGraceDays
	}
	return Window{Start: start, End: end, GraceDays: graceDays}
}

// Running reports whether the internship is in progress: start ≤ now ≤ end.
func (w Window) Running(now time.Time) bool {
	return !now.Before(w.Start) && !now.After(w.End)
}

// UploadOpen reports whether a diary may be uploaded right now. The window
// opens strictly after the internship ends and closes at the deadline
// inclusive: end < now ≤ end + grace.
func (w Window) UploadOpen(now time.Time) bool {
	return now.After(w.End) && !now.After(w.UploadDeadline())
}

// UploadDeadline is the last instant at which an upload is accepted.
func (w Window) UploadDeadline() time.Time {
	return w.End.AddDate(0, 0, w.GraceDays)
}
