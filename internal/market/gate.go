package market

import (
	"errors"
	"fmt"
	"time"
)

type Reason string

const (
	ReasonHoliday      Reason = "holiday"
	ReasonDayOff       Reason = "day_off"
	ReasonOutsideHours Reason = "outside_hours"
)

// ErrClosed matches any *ClosedError with errors.Is.
var ErrClosed = errors.New("market closed")

// ClosedError reports why trading is not permitted.
type ClosedError struct {
	Reason  Reason
	Weekday time.Weekday
	Session Session
	Date    MonthDay
}

func (e *ClosedError) Error() string {
	switch e.Reason {
	case ReasonHoliday:
		return fmt.Sprintf("Market is closed for the holiday on %s.", e.Date)
	case ReasonDayOff:
		return fmt.Sprintf("Market is closed on %s.", e.Weekday)
	default:
		return fmt.Sprintf("Market is closed. Trading hours on %s are %s to %s.",
			e.Weekday, e.Session.Open, e.Session.Close)
	}
}

func (e *ClosedError) Is(target error) bool { return target == ErrClosed }

// Gate applies a schedule and a fixed holiday set to wall-clock time.
type Gate struct {
	loc      *time.Location
	holidays map[MonthDay]struct{}
}

// NewGate builds a gate evaluating times in loc. A nil loc means UTC.
func NewGate(loc *time.Location, holidays []MonthDay) *Gate {
	if loc == nil {
		loc = time.UTC
	}
	set := make(map[MonthDay]struct{}, len(holidays))
	for _, h := range holidays {
		set[h] = struct{}{}
	}
	return &Gate{loc: loc, holidays: set}
}

func (g *Gate) Location() *time.Location { return g.loc }

// IsHoliday reports whether now falls on a configured holiday.
func (g *Gate) IsHoliday(now time.Time) bool {
	now = now.In(g.loc)
	_, ok := g.holidays[MonthDay{Month: now.Month(), Day: now.Day()}]
	return ok
}

// Check returns nil when trading is permitted at now, else a *ClosedError.
func (g *Gate) Check(s Schedule, now time.Time) error {
	now = now.In(g.loc)
	wd := now.Weekday()

	if g.IsHoliday(now) {
		return &ClosedError{Reason: ReasonHoliday, Weekday: wd, Date: MonthDay{Month: now.Month(), Day: now.Day()}}
	}
	day := s.Days[wd]
	if !day.Open {
		return &ClosedError{Reason: ReasonDayOff, Weekday: wd}
	}
	sess := s.session(wd)
	if !sess.Contains(ClockOf(now)) {
		return &ClosedError{Reason: ReasonOutsideHours, Weekday: wd, Session: sess}
	}
	return nil
}

// Status is the market state rendered in views.
type Status struct {
	Open    bool   `json:"open"`
	Reason  Reason `json:"reason,omitempty"`
	Message string `json:"message"`
}

func (g *Gate) Status(s Schedule, now time.Time) Status {
	err := g.Check(s, now)
	if err == nil {
		sess := s.session(now.In(g.loc).Weekday())
		return Status{Open: true, Message: fmt.Sprintf("Market is open until %s.", sess.Close)}
	}
	var closed *ClosedError
	if errors.As(err, &closed) {
		return Status{Reason: closed.Reason, Message: closed.Error()}
	}
	return Status{Message: err.Error()}
}
