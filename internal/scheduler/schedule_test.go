package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/tbourn/llm-chat-backend/internal/domain"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestSchedule_Next(t *testing.T) {
	cases := []struct {
		name  string
		s     Schedule
		after string
		want  string
	}{
		{"daily later today", Schedule{Recurrence: domain.RecurDaily, TimeOfDay: "09:30"}, "2026-03-10T08:00:00Z", "2026-03-10T09:30:00Z"},
		{"daily already passed", Schedule{Recurrence: domain.RecurDaily, TimeOfDay: "09:30"}, "2026-03-10T09:30:00Z", "2026-03-11T09:30:00Z"},
		{"once behaves like daily", Schedule{Recurrence: domain.RecurOnce, TimeOfDay: "23:59"}, "2026-03-10T08:00:00Z", "2026-03-10T23:59:00Z"},
		{"weekly same weekday later", Schedule{Recurrence: domain.RecurWeekly, TimeOfDay: "10:00", Weekday: int(time.Tuesday)}, "2026-03-10T08:00:00Z", "2026-03-10T10:00:00Z"},
		{"weekly next week", Schedule{Recurrence: domain.RecurWeekly, TimeOfDay: "10:00", Weekday: int(time.Tuesday)}, "2026-03-10T11:00:00Z", "2026-03-17T10:00:00Z"},
		{"weekly friday", Schedule{Recurrence: domain.RecurWeekly, TimeOfDay: "07:00", Weekday: int(time.Friday)}, "2026-03-10T11:00:00Z", "2026-03-13T07:00:00Z"},
		{"monthly clamps to month end", Schedule{Recurrence: domain.RecurMonthly, TimeOfDay: "12:00", MonthDay: 31}, "2026-02-01T00:00:00Z", "2026-02-28T12:00:00Z"},
		{"monthly rolls to next month", Schedule{Recurrence: domain.RecurMonthly, TimeOfDay: "12:00", MonthDay: 5}, "2026-03-06T00:00:00Z", "2026-04-05T12:00:00Z"},
		{"monthly rolls over year", Schedule{Recurrence: domain.RecurMonthly, TimeOfDay: "00:00", MonthDay: 1}, "2026-12-15T00:00:00Z", "2027-01-01T00:00:00Z"},
		{"timezone applied", Schedule{Recurrence: domain.RecurDaily, TimeOfDay: "09:00", Timezone: "Europe/Athens"}, "2026-01-10T08:00:00Z", "2026-01-11T07:00:00Z"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := tc.s.Next(mustTime(t, tc.after))
			if err != nil {
				t.Fatalf("Next: %v", err)
			}
			if want := mustTime(t, tc.want); !got.Equal(want) {
				t.Fatalf("got %s want %s", got, want)
			}
		})
	}
}

func TestSchedule_Validate(t *testing.T) {
	cases := []struct {
		s    Schedule
		want error
	}{
		{Schedule{Recurrence: "hourly", TimeOfDay: "10:00"}, ErrInvalidRecurrence},
		{Schedule{Recurrence: domain.RecurDaily, TimeOfDay: "9:00"}, ErrInvalidTimeOfDay},
		{Schedule{Recurrence: domain.RecurDaily, TimeOfDay: "24:00"}, ErrInvalidTimeOfDay},
		{Schedule{Recurrence: domain.RecurDaily, TimeOfDay: "10:00", Timezone: "Mars/Olympus"}, ErrInvalidTimezone},
		{Schedule{Recurrence: domain.RecurWeekly, TimeOfDay: "10:00", Weekday: 7}, ErrInvalidWeekday},
		{Schedule{Recurrence: domain.RecurMonthly, TimeOfDay: "10:00", MonthDay: 0}, ErrInvalidMonthDay},
	}
	for _, tc := range cases {
		if err := tc.s.Validate(); !errors.Is(err, tc.want) {
			t.Errorf("%+v: got %v want %v", tc.s, err, tc.want)
		}
	}
	ok := Schedule{Recurrence: domain.RecurWeekly, TimeOfDay: "06:15", Weekday: 0, Timezone: "America/New_York"}
	if err := ok.Validate(); err != nil {
		t.Fatalf("valid schedule rejected: %v", err)
	}
}

func TestNextAfterRun(t *testing.T) {
	now := mustTime(t, "2026-03-10T09:30:00Z")
	once := &domain.ScheduledTask{Recurrence: domain.RecurOnce, TimeOfDay: "09:30"}
	if n, err := NextAfterRun(once, now); err != nil || n != nil {
		t.Fatalf("once: next=%v err=%v", n, err)
	}
	daily := &domain.ScheduledTask{Recurrence: domain.RecurDaily, TimeOfDay: "09:30"}
	n, err := NextAfterRun(daily, now)
	if err != nil || n == nil || !n.Equal(mustTime(t, "2026-03-11T09:30:00Z")) {
		t.Fatalf("daily: next=%v err=%v", n, err)
	}
}
