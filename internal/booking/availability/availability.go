// Package availability decides whether a space can take a booking. All
// intervals are half-open: [Start, End).
package availability

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/deskbase-backend/internal/domain/spaces"
)

type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (a Interval) Overlaps(b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

func (a Interval) Duration() time.Duration { return a.End.Sub(a.Start) }

// Widen grows the interval by d on both sides.
func (a Interval) Widen(d time.Duration) Interval {
	if d <= 0 {
		return a
	}
	return Interval{Start: a.Start.Add(-d), End: a.End.Add(d)}
}

// Busy is an existing booking that blocks the space.
type Busy struct {
	BookingID uuid.UUID `json:"booking_id"`
	Interval
	// HoldExpiresAt is set while the booking is an unconfirmed hold.
	HoldExpiresAt *time.Time `json:"hold_expires_at,omitempty"`
}

// FromBookings keeps the bookings that occupy the space at now. Lapsed holds
// are free even before the sweep marks them expired.
func FromBookings(bookings []*spaces.Booking, now time.Time) []Busy {
	out := make([]Busy, 0, len(bookings))
	for _, b := range bookings {
		if !b.IsActive() || b.HoldLapsed(now) {
			continue
		}
		busy := Busy{BookingID: b.ID, Interval: Interval{Start: b.StartAt, End: b.EndAt}}
		if b.Status == spaces.BookingPending {
			busy.HoldExpiresAt = b.HoldExpiresAt
		}
		out = append(out, busy)
	}
	return out
}

// Live drops entries whose hold has lapsed by now, for busy lists read back
// from a cache.
func Live(busy []Busy, now time.Time) []Busy {
	out := busy[:0:0]
	for _, b := range busy {
		if b.HoldExpiresAt != nil && !now.Before(*b.HoldExpiresAt) {
			continue
		}
		out = append(out, b)
	}
	return out
}

type Request struct {
	Start     time.Time
	End       time.Time
	Attendees int
	// Ignore excludes a booking from conflict checks, e.g. the booking being rescheduled.
	Ignore uuid.UUID
}

func (r Request) Interval() Interval { return Interval{Start: r.Start, End: r.End} }

// Conflicts returns the existing bookings that overlap the request once each
// of them is widened by buffer. Results are ordered by start time.
func Conflicts(req Request, existing []Busy, buffer time.Duration) []Busy {
	want := req.Interval()
	var out []Busy
	for _, b := range existing {
		if req.Ignore != uuid.Nil && b.BookingID == req.Ignore {
			continue
		}
		if b.Interval.Widen(buffer).Overlaps(want) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// FreeSlots lists slot-long windows inside the opening hours of day (a date in
// loc) that clear every buffered booking. Candidate starts advance by step
// from opening time.
func FreeSlots(day time.Time, space *spaces.Space, loc *time.Location, existing []Busy, slot, step time.Duration) ([]Interval, error) {
	if loc == nil {
		loc = time.UTC
	}
	if slot <= 0 {
		return nil, violation(CodeInvalidWindow, "slot length must be positive")
	}
	if step <= 0 {
		step = slot
	}
	openAt, closeAt, err := openingWindow(space, day.In(loc), loc)
	if err != nil {
		return nil, err
	}
	if openAt.IsZero() {
		return []Interval{}, nil
	}
	buffered := make([]Interval, 0, len(existing))
	for _, b := range existing {
		buffered = append(buffered, b.Interval.Widen(space.Buffer()))
	}
	sort.Slice(buffered, func(i, j int) bool { return buffered[i].Start.Before(buffered[j].Start) })

	out := []Interval{}
	for s := openAt; !s.Add(slot).After(closeAt); s = s.Add(step) {
		cand := Interval{Start: s, End: s.Add(slot)}
		free := true
		for _, b := range buffered {
			if !b.Start.Before(cand.End) {
				break
			}
			if b.Overlaps(cand) {
				free = false
				break
			}
		}
		if free {
			out = append(out, cand)
		}
	}
	return out, nil
}

// openingWindow returns the absolute opening interval of the local date of
// day, or zero times when the space is closed that weekday.
func openingWindow(space *spaces.Space, day time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if !space.OpenOn(day.Weekday()) {
		return time.Time{}, time.Time{}, nil
	}
	openMin, err := spaces.ParseClock(space.OpenTime)
	if err != nil {
		return time.Time{}, time.Time{}, violation(CodeInvalidHours, "%v", err)
	}
	closeMin, err := spaces.ParseClock(space.CloseTime)
	if err != nil {
		return time.Time{}, time.Time{}, violation(CodeInvalidHours, "%v", err)
	}
	if closeMin <= openMin {
		return time.Time{}, time.Time{}, violation(CodeInvalidHours, "close time must be after open time")
	}
	y, m, d := day.Date()
	openAt := time.Date(y, m, d, openMin/60, openMin%60, 0, 0, loc)
	closeAt := time.Date(y, m, d, closeMin/60, closeMin%60, 0, 0, loc)
	return openAt, closeAt, nil
}
