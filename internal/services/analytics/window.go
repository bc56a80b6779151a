package analytics

import (
	"time"

	"restaurant-pos/internal/models"
)

// Named presets accepted by Range.Resolve
const (
	PresetToday      = "Today"
	PresetYesterday  = "Yesterday"
	PresetLast7Days  = "Last 7 Days"
	PresetLast30Days = "Last 30 Days"
)

const dateLayout = "2006-01-02"

// Window is the half-open interval [From, To) covering whole calendar days
// from StartDate through EndDate.
type Window struct {
	From      time.Time
	To        time.Time
	StartDate time.Time
	EndDate   time.Time
}

// NewWindow builds a window from two instants. Only their calendar dates in
// loc matter: From is the start of start's day, To is the day after end's day.
func NewWindow(start, end time.Time, loc *time.Location) (Window, error) {
	startDate := startOfDay(start, loc)
	endDate := startOfDay(end, loc)
	if endDate.Before(startDate) {
		return Window{}, models.ValidationError{Field: "range", Message: "end date is before start date"}
	}
	return Window{
		From:      startDate,
		To:        endDate.AddDate(0, 0, 1),
		StartDate: startDate,
		EndDate:   endDate,
	}, nil
}

// ParseWindow builds a window from two YYYY-MM-DD dates
func ParseWindow(start, end string, loc *time.Location) (Window, error) {
	s, err := time.ParseInLocation(dateLayout, start, loc)
	if err != nil {
		return Window{}, models.ValidationError{Field: "start", Message: "start must be a YYYY-MM-DD date"}
	}
	e, err := time.ParseInLocation(dateLayout, end, loc)
	if err != nil {
		return Window{}, models.ValidationError{Field: "end", Message: "end must be a YYYY-MM-DD date"}
	}
	return NewWindow(s, e, loc)
}

// PresetWindow maps a preset name to its window relative to now
func PresetWindow(name string, now time.Time, loc *time.Location) (Window, error) {
	now = now.In(loc)

	var start, end time.Time
	switch name {
	case PresetToday:
		start, end = now, now
	case PresetYesterday:
		start = startOfDay(now, loc).AddDate(0, 0, -1)
		end = time.Date(start.Year(), start.Month(), start.Day(), 23, 59, 59, 0, loc)
	case PresetLast7Days:
		start, end = now.AddDate(0, 0, -7), now
	case PresetLast30Days:
		start, end = now.AddDate(0, 0, -30), now
	default:
		return Window{}, models.ValidationError{Field: "range", Message: "unknown range preset " + name}
	}
	return NewWindow(start, end, loc)
}

// Range is a window request as received from a transport: either a preset
// name or an explicit start/end pair.
type Range struct {
	Preset string `json:"range,omitempty"`
	Start  string `json:"start,omitempty"`
	End    string `json:"end,omitempty"`
}

// Resolve turns the request into a window. Explicit dates win over a preset.
func (r Range) Resolve(now time.Time, loc *time.Location) (Window, error) {
	if r.Start != "" || r.End != "" {
		return ParseWindow(r.Start, r.End, loc)
	}
	if r.Preset == "" {
		return Window{}, models.ValidationError{Field: "range", Message: "range or start/end is required"}
	}
	return PresetWindow(r.Preset, now, loc)
}

// Days lists every calendar day in the window, in order
func (w Window) Days() []time.Time {
	days := make([]time.Time, 0)
	for d := w.StartDate; !d.After(w.EndDate); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Contains reports whether t falls in [From, To)
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && t.Before(w.To)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
