package models

import (
	"fmt"
	"time"
)

// DateLayout is the storage format of a calendar day.
const DateLayout = "2006-01-02"

// Date is a calendar day in yyyy-mm-dd form. It is compared by string
// equality only; no timezone is attached.
type Date string

// DateOf formats the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Today returns the local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

// ParseDate validates s as a yyyy-mm-dd day.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want yyyy-mm-dd", s)
	}
	return DateOf(t), nil
}

func (d Date) String() string { return string(d) }
