// Package calendar implements working-day arithmetic over a weekly pattern
// of working weekdays plus a set of holiday dates.
package calendar

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joshharrison/sprintloom/internal/diag"
)

// DateLayout is the civil-date format used for parsing and output.
const DateLayout = "2006-01-02"

// Calendar is an immutable working-day calendar.
type Calendar struct {
	working  [7]bool
	holidays map[time.Time]bool
}

// Weekdays is the default Mon-Fri working week.
var Weekdays = []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}

// New creates a calendar. At least one working weekday is required.
func New(workingDays []time.Weekday, holidays []time.Time) (*Calendar, error) {
	c := &Calendar{holidays: make(map[time.Time]bool, len(holidays))}
	for _, wd := range workingDays {
		if wd < time.Sunday || wd > time.Saturday {
			return nil, diag.Configf("working_days", "invalid weekday %d", wd)
		}
		c.working[wd] = true
	}
	if len(c.WorkingDays()) == 0 {
		return nil, diag.Configf("working_days", "at least one working day is required")
	}
	for _, h := range holidays {
		c.holidays[Day(h)] = true
	}
	return c, nil
}

// Default returns a Mon-Fri calendar without holidays.
func Default() *Calendar {
	c, _ := New(Weekdays, nil)
	return c
}

// Day truncates t to its civil date at midnight UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date is a shorthand for a civil date.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date, also accepting full RFC 3339 timestamps.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Day(t), nil
}

// ParseWeekday accepts "mon".."sun", full weekday names, or the ordinals
// 0 (Monday) through 6 (Sunday).
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 6 {
			return 0, diag.Configf("working_days", "weekday ordinal %d out of range 0-6", n)
		}
		return time.Weekday((n + 1) % 7), nil
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || s == name[:3] {
			return wd, nil
		}
	}
	return 0, diag.Configf("working_days", "unknown weekday %q", s)
}

// WorkingDays returns the working weekdays in Sunday-first order.
func (c *Calendar) WorkingDays() []time.Weekday {
	var out []time.Weekday
	for wd, ok := range c.working {
		if ok {
			out = append(out, time.Weekday(wd))
		}
	}
	return out
}

// Holidays returns the holiday dates in ascending order.
func (c *Calendar) Holidays() []time.Time {
	out := make([]time.Time, 0, len(c.holidays))
	for h := range c.holidays {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// IsWorkingDay reports whether d falls on a working weekday and is not a holiday.
func (c *Calendar) IsWorkingDay(d time.Time) bool {
	d = Day(d)
	return c.working[d.Weekday()] && !c.holidays[d]
}

// NextWorkingDay returns d itself when it is a working day, otherwise the
// next working day after it.
func (c *Calendar) NextWorkingDay(d time.Time) time.Time {
	cur := Day(d)
	for !c.IsWorkingDay(cur) {
		cur = cur.AddDate(0, 0, 1)
	}
	return cur
}

// DayAt returns the i-th working day (0-based) at or after start.
func (c *Calendar) DayAt(start time.Time, i int) time.Time {
	cur := c.NextWorkingDay(start)
	for n := 0; n < i; n++ {
		cur = c.NextWorkingDay(cur.AddDate(0, 0, 1))
	}
	return cur
}

// Advance returns the working day on which an n-day piece of work started on
// d completes. Counting is inclusive of the first working day, so Monday + 5
// lands on Friday. A fractional remainder completes on the same day as the
// last whole day would have been consumed, i.e. the result is the ceil(n)-th
// working day. Non-positive n returns d unchanged.
func (c *Calendar) Advance(d time.Time, n float64) time.Time {
	if n <= 0 {
		return Day(d)
	}
	return c.DayAt(d, int(math.Ceil(n-1e-9))-1)
}

// Span returns the number of calendar days from one date to another
// (negative when to is before from).
func Span(from, to time.Time) int {
	return int(Day(to).Sub(Day(from)).Hours() / 24)
}

// Format renders a civil date as YYYY-MM-DD. The zero time renders as "".
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return Day(t).Format(DateLayout)
}
