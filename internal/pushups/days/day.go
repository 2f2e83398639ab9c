package days

import (
	"encoding/json"
	"fmt"
	"time"
)

const Layout = "2006-01-02"

const secondsPerDay = 24 * 60 * 60

// Day is a calendar day key: the number of days since 1970-01-01.
// It carries no time of day and no zone, so equal calendar days compare
// equal and order follows the calendar.
type Day int

// FromDate keys the calendar date of t as read in t's own location.
func FromDate(t time.Time) Day {
	y, m, d := t.Date()
	return fromYMD(y, m, d)
}

func fromYMD(y int, m time.Month, d int) Day {
	unix := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	// floor division for dates before the epoch
	if unix < 0 && unix%secondsPerDay != 0 {
		return Day(unix/secondsPerDay - 1)
	}
	return Day(unix / secondsPerDay)
}

// ParseDay accepts exactly YYYY-MM-DD.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return 0, fmt.Errorf("parse day [%s]: %w", s, err)
	}
	return FromDate(t), nil
}

// Time returns midnight UTC of the day, the form stored in DATE columns.
func (d Day) Time() time.Time {
	return time.Unix(int64(d)*secondsPerDay, 0).UTC()
}

func (d Day) String() string {
	return d.Time().Format(Layout)
}

func (d Day) AddDays(n int) Day {
	return d + Day(n)
}

func (d Day) Before(other Day) bool {
	return d < other
}

func (d Day) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Day) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("day must be a YYYY-MM-DD string: %w", err)
	}
	parsed, err := ParseDay(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
