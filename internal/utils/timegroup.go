package utils

import "time"

// TimeGroup is the sidebar bucket a chat falls into by its last activity.
type TimeGroup string

const (
	GroupToday      TimeGroup = "Today"
	GroupYesterday  TimeGroup = "Yesterday"
	GroupLast7Days  TimeGroup = "Last 7 Days"
	GroupLast30Days TimeGroup = "Last 30 Days"
	GroupOlder      TimeGroup = "Older"
)

// TimeGroups lists the buckets in display order.
var TimeGroups = []TimeGroup{GroupToday, GroupYesterday, GroupLast7Days, GroupLast30Days, GroupOlder}

// GroupByTime buckets t relative to now by calendar days in now's location.
// Times in the future count as Today.
func GroupByTime(t, now time.Time) TimeGroup {
	diff := dayNumber(now) - dayNumber(t.In(now.Location()))
	switch {
	case diff <= 0:
		return GroupToday
	case diff == 1:
		return GroupYesterday
	case diff <= 7:
		return GroupLast7Days
	case diff <= 30:
		return GroupLast30Days
	default:
		return GroupOlder
	}
}

// dayNumber maps a wall-clock date to a day index, ignoring DST shifts.
func dayNumber(t time.Time) int64 {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}
