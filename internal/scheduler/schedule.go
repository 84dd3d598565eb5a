// Package scheduler computes recurrence instants for scheduled tasks and runs
// due tasks on a polling loop.
package scheduler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

// Validation errors returned by Schedule.Validate.
var (
	ErrInvalidRecurrence = errors.New("recurrence must be one of: once, daily, weekly, monthly")
	ErrInvalidTimeOfDay  = errors.New("time_of_day must be HH:MM")
	ErrInvalidTimezone   = errors.New("unknown timezone")
	ErrInvalidWeekday    = errors.New("weekday must be between 0 (Sunday) and 6")
	ErrInvalidMonthDay   = errors.New("month_day must be between 1 and 31")
)

// Schedule is the recurrence part of a task.
type Schedule struct {
	Recurrence string
	TimeOfDay  string
	Weekday    int
	MonthDay   int
	Timezone   string
}

// ScheduleOf extracts the schedule of a task.
func ScheduleOf(t *domain.ScheduledTask) Schedule {
	return Schedule{
		Recurrence: t.Recurrence,
		TimeOfDay:  t.TimeOfDay,
		Weekday:    t.Weekday,
		MonthDay:   t.MonthDay,
		Timezone:   t.Timezone,
	}
}

// Validate checks every field relevant to the recurrence.
func (s Schedule) Validate() error {
	switch s.Recurrence {
	case domain.RecurOnce, domain.RecurDaily, domain.RecurWeekly, domain.RecurMonthly:
	default:
		return ErrInvalidRecurrence
	}
	if _, _, err := parseClock(s.TimeOfDay); err != nil {
		return err
	}
	if _, err := s.location(); err != nil {
		return err
	}
	if s.Recurrence == domain.RecurWeekly && (s.Weekday < 0 || s.Weekday > 6) {
		return ErrInvalidWeekday
	}
	if s.Recurrence == domain.RecurMonthly && (s.MonthDay < 1 || s.MonthDay > 31) {
		return ErrInvalidMonthDay
	}
	return nil
}

// Next returns the first occurrence strictly after `after`. A "once"
// schedule behaves like "daily" here: its single run is the next HH:MM.
func (s Schedule) Next(after time.Time) (time.Time, error) {
	if err := s.Validate(); err != nil {
		return time.Time{}, err
	}
	loc, _ := s.location()
	hh, mm, _ := parseClock(s.TimeOfDay)
	local := after.In(loc)
	y, mo, d := local.Date()

	switch s.Recurrence {
	case domain.RecurOnce, domain.RecurDaily:
		c := time.Date(y, mo, d, hh, mm, 0, 0, loc)
		if !c.After(after) {
			c = time.Date(y, mo, d+1, hh, mm, 0, 0, loc)
		}
		return c.UTC(), nil

	case domain.RecurWeekly:
		delta := (s.Weekday - int(local.Weekday()) + 7) % 7
		c := time.Date(y, mo, d+delta, hh, mm, 0, 0, loc)
		if !c.After(after) {
			c = time.Date(y, mo, d+delta+7, hh, mm, 0, 0, loc)
		}
		return c.UTC(), nil

	default: // monthly
		c := monthly(y, mo, s.MonthDay, hh, mm, loc)
		if !c.After(after) {
			c = monthly(y, mo+1, s.MonthDay, hh, mm, loc)
		}
		return c.UTC(), nil
	}
}

// NextAfterRun returns the NextRunAt to store once a run at ranAt has been
// claimed. It is nil for one-shot tasks.
func NextAfterRun(t *domain.ScheduledTask, ranAt time.Time) (*time.Time, error) {
	if t.Recurrence == domain.RecurOnce {
		return nil, nil
	}
	n, err := ScheduleOf(t).Next(ranAt)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// monthly clamps day to the length of the month; month may overflow into
// the next year.
func monthly(y int, mo time.Month, day, hh, mm int, loc *time.Location) time.Time {
	first := time.Date(y, mo, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1).Day()
	return time.Date(first.Year(), first.Month(), min(day, last), hh, mm, 0, 0, loc)
}

func (s Schedule) location() (*time.Location, error) {
	tz := strings.TrimSpace(s.Timezone)
	if tz == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTimezone, tz)
	}
	return loc, nil
}

func parseClock(s string) (int, int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(h) != 2 || len(m) != 2 {
		return 0, 0, ErrInvalidTimeOfDay
	}
	hh, err1 := strconv.Atoi(h)
	mm, err2 := strconv.Atoi(m)
	if err1 != nil || err2 != nil || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return 0, 0, ErrInvalidTimeOfDay
	}
	return hh, mm, nil
}
