package calendar

import (
	"fmt"

	"github.com/freekieb7/calendar/internal/employee"
	"github.com/freekieb7/calendar/internal/security"
)

// CanView decides whether viewer may see event. Checks run cheapest first and
// the first match wins:
//
//  1. the viewer created the event, whatever either level is now
//  2. the viewer's clearance covers the event's level
//  3. the viewer holds an explicit view grant
//
// The viewer must be a resolved, active employee and the event must have its
// viewer set loaded.
func CanView(viewer employee.Employee, event Event) bool {
	if viewer.ID == event.CreatorID {
		return true
	}
	if viewer.SecurityLevel.HasAccessTo(event.SecurityLevel) {
		return true
	}
	return event.Viewers.Contains(viewer.ID)
}

// CanManage reports whether e may edit, delete or share event.
func CanManage(e employee.Employee, event Event) bool {
	return e.ID == event.CreatorID || e.SecurityLevel == security.Level1
}

// ValidateSecurityLevel enforces the write-path rule that an event is never
// classified above its creator's own clearance.
func ValidateSecurityLevel(creatorLevel, eventLevel security.Level) error {
	if !eventLevel.Valid() {
		return fmt.Errorf("%w: %d", security.ErrInvalidSecurityLevelRank, eventLevel.Rank())
	}
	if eventLevel.Rank() < creatorLevel.Rank() {
		return fmt.Errorf("%w: creator %s, event %s", ErrSecurityLevelAboveCreator, creatorLevel, eventLevel)
	}
	return nil
}
