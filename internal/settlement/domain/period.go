package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

var periodRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Period is a calendar month in UTC.
type Period struct {
	year  int
	month time.Month
}

func ParsePeriod(value string) (Period, error) {
	value = strings.TrimSpace(value)
	if !periodRe.MatchString(value) {
		return Period{}, ErrInvalidPeriod
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return Period{}, ErrInvalidPeriod
	}
	return Period{year: t.Year(), month: t.Month()}, nil
}

// PeriodOf returns the month containing t, evaluated in UTC.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{year: t.Year(), month: t.Month()}
}

// PreviousPeriod returns the calendar month before the one containing now.
func PreviousPeriod(now time.Time) Period {
	return PeriodOf(now).Prev()
}

func (p Period) IsZero() bool {
	return p.year == 0
}

// Start is the first instant of the month.
func (p Period) Start() time.Time {
	return time.Date(p.year, p.month, 1, 0, 0, 0, 0, time.UTC)
}

// End is the first instant of the following month, exclusive.
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// LastDay is the last calendar day of the month at midnight UTC.
func (p Period) LastDay() time.Time {
	return p.End().AddDate(0, 0, -1)
}

func (p Period) Prev() Period {
	return PeriodOf(p.Start().AddDate(0, -1, 0))
}

func (p Period) Next() Period {
	return PeriodOf(p.End())
}

func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start()) && t.Before(p.End())
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.year, int(p.month))
}

// Compact renders the period as YYYYMM.
func (p Period) Compact() string {
	return fmt.Sprintf("%04d%02d", p.year, int(p.month))
}
