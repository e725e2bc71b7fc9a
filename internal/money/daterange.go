package money

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidDateRange rejects ranges where the end precedes the start.
var ErrInvalidDateRange = errors.New("money: range end must not precede start")

// DateRange is an ordered pair of dates.
type DateRange struct {
	start time.Time
	end   time.Time
}

// NewDateRange validates ordering and builds a range.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, fmt.Errorf("%w: %s before %s",
			ErrInvalidDateRange, end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return DateRange{start: start, end: end}, nil
}

// Start returns the range start.
func (r DateRange) Start() time.Time { return r.start }

// End returns the range end.
func (r DateRange) End() time.Time { return r.end }

// Days returns the whole number of days between start and end.
func (r DateRange) Days() int {
	return int(r.end.Sub(r.start).Hours() / 24)
}

// CalendarYears returns the calendar-year difference between the endpoints,
// not a fractional elapsed duration. A gift made in June 2015 brought into
// account at a March 2020 death counts five years.
func (r DateRange) CalendarYears() int {
	return r.end.Year() - r.start.Year()
}

// Contains reports whether t falls within the range, inclusive of both ends.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.start) && !t.After(r.end)
}
