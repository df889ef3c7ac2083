package availability

import (
	"fmt"
	"time"

	"github.com/yungbote/deskbase-backend/internal/domain/spaces"
)

const (
	CodeInvalidWindow = "invalid_window"
	CodeInPast        = "start_in_past"
	CodeTooShort      = "duration_too_short"
	CodeTooLong       = "duration_too_long"
	CodeOverCapacity  = "over_capacity"
	CodeClosedDay     = "closed_day"
	CodeOutsideHours  = "outside_opening_hours"
	CodeInvalidHours  = "invalid_opening_hours"
	CodeInactive      = "space_inactive"
)

// Violation is a rule the request breaks. Code is stable for API clients.
type Violation struct {
	Code    string
	Message string
}

func (v *Violation) Error() string { return v.Message }

func violation(code, format string, args ...any) *Violation {
	return &Violation{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validate checks a request against the space's static constraints. Opening
// hours are evaluated in loc and a booking must sit within a single opening day.
func Validate(req Request, space *spaces.Space, loc *time.Location, now time.Time) error {
	if loc == nil {
		loc = time.UTC
	}
	if !space.Active {
		return violation(CodeInactive, "space %s is not bookable", space.Name)
	}
	if !req.End.After(req.Start) {
		return violation(CodeInvalidWindow, "end must be after start")
	}
	if req.Start.Before(now) {
		return violation(CodeInPast, "booking cannot start in the past")
	}
	dur := req.End.Sub(req.Start)
	if space.MinDurationMinutes > 0 && dur < time.Duration(space.MinDurationMinutes)*time.Minute {
		return violation(CodeTooShort, "minimum duration is %d minutes", space.MinDurationMinutes)
	}
	if space.MaxDurationMinutes > 0 && dur > time.Duration(space.MaxDurationMinutes)*time.Minute {
		return violation(CodeTooLong, "maximum duration is %d minutes", space.MaxDurationMinutes)
	}
	if req.Attendees < 1 {
		return violation(CodeOverCapacity, "attendees must be at least 1")
	}
	if space.Capacity > 0 && req.Attendees > space.Capacity {
		return violation(CodeOverCapacity, "space holds at most %d people", space.Capacity)
	}

	start := req.Start.In(loc)
	openAt, closeAt, err := openingWindow(space, start, loc)
	if err != nil {
		return err
	}
	if openAt.IsZero() {
		return violation(CodeClosedDay, "space is closed on %s", start.Weekday())
	}
	if req.Start.Before(openAt) || req.End.After(closeAt) {
		return violation(CodeOutsideHours, "bookings must fall between %s and %s", space.OpenTime, space.CloseTime)
	}
	return nil
}
