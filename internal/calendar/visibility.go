package calendar

import (
	"time"

	"github.com/freekieb7/calendar/internal/employee"
)

// FilterVisible keeps the events viewer may see, in their original order.
func FilterVisible(viewer employee.Employee, events []Event) []Event {
	visible := make([]Event, 0, len(events))
	for _, event := range events {
		if CanView(viewer, event) {
			visible = append(visible, event)
		}
	}
	return visible
}

// Overlaps reports whether the event's interval intersects [start, end],
// both bounds inclusive.
func Overlaps(event Event, start, end time.Time) bool {
	return !event.StartTime.After(end) && !event.EndTime.Before(start)
}

// FilterVisibleInRange keeps events that both overlap [start, end] and are
// visible to viewer, in their original order.
func FilterVisibleInRange(viewer employee.Employee, events []Event, start, end time.Time) []Event {
	visible := make([]Event, 0, len(events))
	for _, event := range events {
		if Overlaps(event, start, end) && CanView(viewer, event) {
			visible = append(visible, event)
		}
	}
	return visible
}

// MonthRange returns the first instant of the month and its last second.
func MonthRange(year, month int, loc *time.Location) (time.Time, time.Time, error) {
	if month < 1 || month > 12 {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 1, 0).Add(-time.Second)
	return start, end, nil
}
