// Package report turns symbolic reporting periods into concrete date ranges
// and folds a user's transactions into summaries over them.
package report

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"moneymanager/internal/core"
)

type Period string

const (
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
	Custom  Period = "custom"
)

// PeriodParams are the raw reporting parameters. Zero numbers and empty
// strings mean "not supplied".
type PeriodParams struct {
	Period    Period
	Month     int
	Year      int
	Week      int
	StartDate string
	EndDate   string
}

var customLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
}

// Resolve converts p into an inclusive range anchored to now. It never reads
// the clock; every calendar computation happens in now's location.
//
// The end of the range is always pushed to 23:59:59.999 of its day so that a
// BETWEEN filter covers the whole final day.
func Resolve(p PeriodParams, now time.Time) (core.DateRange, error) {
	loc := now.Location()
	var start, end time.Time

	switch {
	case p.Period == Weekly:
		if p.Week < 0 {
			return core.DateRange{}, fmt.Errorf("%w: week %d", core.ErrInvalidPeriod, p.Week)
		}
		// Weeks are anchored on the ISO Monday rather than Jan 1, so an
		// omitted year is the ISO year of now.
		isoYear, isoWeek := ISOWeek(now)
		week, year := p.Week, p.Year
		if week == 0 {
			week = isoWeek
		}
		if year == 0 {
			year = isoYear
		}
		start = isoWeekStart(year, week, loc)
		end = start.AddDate(0, 0, 6)

	case p.Period == Monthly:
		month, year := p.Month, p.Year
		if month == 0 {
			month = int(now.Month())
		}
		if month < 1 || month > 12 {
			return core.DateRange{}, fmt.Errorf("%w: month %d", core.ErrInvalidPeriod, month)
		}
		if year == 0 {
			year = now.Year()
		}
		start = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
		end = time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, loc)

	case p.Period == Yearly:
		year := p.Year
		if year == 0 {
			year = now.Year()
		}
		start = time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
		end = time.Date(year, time.December, 31, 0, 0, 0, 0, loc)

	case p.Period == Custom && p.StartDate != "" && p.EndDate != "":
		var err error
		if start, err = parseCustomDate(p.StartDate, loc); err != nil {
			return core.DateRange{}, fmt.Errorf("%w: startDate %q", core.ErrInvalidPeriod, p.StartDate)
		}
		if end, err = parseCustomDate(p.EndDate, loc); err != nil {
			return core.DateRange{}, fmt.Errorf("%w: endDate %q", core.ErrInvalidPeriod, p.EndDate)
		}

	default:
		// Unknown period, or custom without both bounds: current month.
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		end = time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, loc)
	}

	end = endOfDay(end)
	if start.After(end) {
		return core.DateRange{}, fmt.Errorf("%w: start %s after end %s",
			core.ErrInvalidPeriod, start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	return core.DateRange{Start: start, End: end}, nil
}

// ISOWeek returns the ISO-8601 year and week number of t: the date is moved to
// the Thursday of its Monday-start week and the week index is counted from
// January 1st of that Thursday's year.
func ISOWeek(t time.Time) (year, week int) {
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	dayNum := int(d.Weekday())
	if dayNum == 0 {
		dayNum = 7
	}
	d = d.AddDate(0, 0, 4-dayNum)
	yearStart := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
	days := int(d.Sub(yearStart).Hours() / 24)
	// ceil((days+1)/7) in integer arithmetic
	return d.Year(), (days + 1 + 6) / 7
}

// isoWeekStart returns Monday 00:00 of ISO week `week` of ISO year `year`.
// Week 1 is the week holding January 4th. Weeks past the end of the year
// simply continue into the next one.
func isoWeekStart(year, week int, loc *time.Location) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, loc)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7
	}
	week1 := jan4.AddDate(0, 0, 1-wd)
	return week1.AddDate(0, 0, (week-1)*7)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func parseCustomDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range customLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// ParsePeriodParams reads period, month, year, week, startDate and endDate
// from query values. Malformed numbers are rejected rather than ignored.
func ParsePeriodParams(q url.Values) (PeriodParams, error) {
	p := PeriodParams{
		Period:    Period(strings.ToLower(strings.TrimSpace(q.Get("period")))),
		StartDate: strings.TrimSpace(q.Get("startDate")),
		EndDate:   strings.TrimSpace(q.Get("endDate")),
	}
	for _, f := range []struct {
		key string
		dst *int
	}{
		{"month", &p.Month},
		{"year", &p.Year},
		{"week", &p.Week},
	} {
		v := strings.TrimSpace(q.Get(f.key))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return PeriodParams{}, fmt.Errorf("%w: %s %q", core.ErrInvalidPeriod, f.key, v)
		}
		*f.dst = n
	}
	return p, nil
}

// HasPeriod reports whether a period was requested at all.
func (p PeriodParams) HasPeriod() bool {
	return p.Period != ""
}
