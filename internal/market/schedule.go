// Package market decides whether trading is permitted at a given instant.
package market

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atharvakonge/papertrade/internal/models"
)

// Clock is a time of day in minutes after midnight.
type Clock int

// ParseClock parses an "HH:MM" string.
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("invalid time %q, expected HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock(h*60 + m), nil
}

// ClockOf returns the time of day of t in t's location.
func ClockOf(t time.Time) Clock {
	return Clock(t.Hour()*60 + t.Minute())
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Session is the trading window [Open, Close).
type Session struct {
	Open  Clock
	Close Clock
}

func (s Session) Contains(c Clock) bool {
	return c >= s.Open && c < s.Close
}

// Day is the schedule for one weekday.
type Day struct {
	Open    bool
	Session Session
}

// Schedule is the weekly calendar, indexed by time.Weekday.
// Override, when set, replaces every day's session times; day flags still apply.
type Schedule struct {
	Days     [7]Day
	Override *Session
}

// session returns the effective window for weekday wd.
func (s Schedule) session(wd time.Weekday) Session {
	if s.Override != nil {
		return *s.Override
	}
	return s.Days[wd].Session
}

// NewSession validates and builds a session from HH:MM strings.
func NewSession(open, close string) (Session, error) {
	o, err := ParseClock(open)
	if err != nil {
		return Session{}, err
	}
	c, err := ParseClock(close)
	if err != nil {
		return Session{}, err
	}
	if c <= o {
		return Session{}, fmt.Errorf("close time %s must be after open time %s", close, open)
	}
	return Session{Open: o, Close: c}, nil
}

// ScheduleFromRows converts persisted rows. Missing weekdays stay closed.
func ScheduleFromRows(days []models.MarketDay, hours *models.MarketHours) (Schedule, error) {
	var s Schedule
	for _, row := range days {
		if row.Day < 0 || row.Day > 6 {
			return Schedule{}, fmt.Errorf("invalid weekday %d", row.Day)
		}
		if !row.IsOpen && row.OpenTime == "" && row.CloseTime == "" {
			s.Days[row.Day] = Day{}
			continue
		}
		sess, err := NewSession(row.OpenTime, row.CloseTime)
		if err != nil {
			return Schedule{}, fmt.Errorf("%s: %w", time.Weekday(row.Day), err)
		}
		s.Days[row.Day] = Day{Open: row.IsOpen, Session: sess}
	}
	if hours != nil && hours.Enabled {
		sess, err := NewSession(hours.OpenTime, hours.CloseTime)
		if err != nil {
			return Schedule{}, fmt.Errorf("market hours: %w", err)
		}
		s.Override = &sess
	}
	return s, nil
}

// MonthDay is a calendar date without a year.
type MonthDay struct {
	Month time.Month
	Day   int
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

// ParseHolidays parses "MM-DD" entries.
func ParseHolidays(entries []string) ([]MonthDay, error) {
	out := make([]MonthDay, 0, len(entries))
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		t, err := time.Parse("01-02", e)
		if err != nil {
			return nil, fmt.Errorf("invalid holiday %q, expected MM-DD", e)
		}
		out = append(out, MonthDay{Month: t.Month(), Day: t.Day()})
	}
	return out, nil
}
