// Package daily implements the calendar-day boundary used by the visit
// streak and ticket reset logic. Days are UTC dates in YYYY-MM-DD form;
// the system does not track per-user timezones.
package daily

import "time"

// Layout is the canonical day-string format.
const Layout = "2006-01-02"

// Day returns the calendar day of t in UTC.
func Day(t time.Time) string {
	return t.UTC().Format(Layout)
}

// Today returns the current UTC calendar day.
func Today() string {
	return Day(time.Now())
}

// Previous returns the calendar day immediately before day.
// Invalid input yields an empty string.
func Previous(day string) string {
	t, err := time.Parse(Layout, day)
	if err != nil {
		return ""
	}
	return t.AddDate(0, 0, -1).Format(Layout)
}

// IsYesterday reports whether last is the day immediately before day.
func IsYesterday(last, day string) bool {
	return last != "" && last == Previous(day)
}
