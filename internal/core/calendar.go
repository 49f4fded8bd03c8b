package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the storage and wire format of a calendar day.
const DateLayout = "2006-01-02"

// Date is a calendar day. Only its year, month and day are meaningful;
// the wrapped instant is never converted between locations.
type Date struct {
	time.Time
}

// MonthKey identifies a calendar month, rendered as zero padded YYYY-MM.
type MonthKey struct {
	Year  int
	Month time.Month
}

// MonthRange covers the first through the last calendar day of a month.
type MonthRange struct {
	Key   MonthKey
	Start Date
	End   Date
}

var ErrInvalidDate = errors.New("invalid date")

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Time: time.Date(y, m, d, 0, 0, 0, 0, t.Location())}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// Compare orders two dates by calendar fields only.
func (d Date) Compare(o Date) int {
	ay, am, ad := d.Date()
	by, bm, bd := o.Date()
	switch {
	case ay != by:
		return cmpInt(ay, by)
	case am != bm:
		return cmpInt(int(am), int(bm))
	default:
		return cmpInt(ad, bd)
	}
}

func (d Date) SameDay(o Date) bool { return d.Compare(o) == 0 }

// AddDays moves the date by n calendar days, keeping its location.
func (d Date) AddDays(n int) Date {
	y, m, day := d.Date()
	return Date{Time: time.Date(y, m, day+n, 0, 0, 0, 0, d.Location())}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ResolveRange returns the month containing t, computed from t's calendar
// fields in t's own location. The end is day zero of the following month,
// so leap years and December rollover come from time.Date normalisation.
func ResolveRange(t time.Time) MonthRange {
	y, m, _ := t.Date()
	return MonthKey{Year: y, Month: m}.Range(t.Location())
}

func MonthKeyOf(d Date) MonthKey {
	y, m, _ := d.Date()
	return MonthKey{Year: y, Month: m}
}

// ParseMonthKey parses "YYYY-MM".
func ParseMonthKey(s string) (MonthKey, error) {
	s = strings.TrimSpace(s)
	parts := strings.Split(s, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 2 {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	y, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	k := MonthKey{Year: y, Month: time.Month(m)}
	if err := k.Validate(); err != nil {
		return MonthKey{}, fmt.Errorf("%w: %q", err, s)
	}
	return k, nil
}

func (k MonthKey) Validate() error {
	if k.Month < time.January || k.Month > time.December || k.Year < 1 || k.Year > 9999 {
		return ErrInvalidMonth
	}
	return nil
}

func (k MonthKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.Year, int(k.Month))
}

func (k MonthKey) IsZero() bool { return k.Year == 0 && k.Month == 0 }

func (k MonthKey) Before(o MonthKey) bool {
	if k.Year != o.Year {
		return k.Year < o.Year
	}
	return k.Month < o.Month
}

func (k MonthKey) Next() MonthKey { return k.shift(1) }
func (k MonthKey) Prev() MonthKey { return k.shift(-1) }

func (k MonthKey) shift(n int) MonthKey {
	t := time.Date(k.Year, k.Month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return MonthKey{Year: t.Year(), Month: t.Month()}
}

// Range returns the first and last day of the month in loc.
func (k MonthKey) Range(loc *time.Location) MonthRange {
	if loc == nil {
		loc = time.Local
	}
	return MonthRange{
		Key:   k,
		Start: Date{Time: time.Date(k.Year, k.Month, 1, 0, 0, 0, 0, loc)},
		End:   Date{Time: time.Date(k.Year, k.Month+1, 0, 0, 0, 0, 0, loc)},
	}
}

func (k MonthKey) MarshalJSON() ([]byte, error) {
	return []byte(`"` + k.String() + `"`), nil
}

func (k *MonthKey) UnmarshalJSON(b []byte) error {
	parsed, err := ParseMonthKey(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Contains reports whether d falls within the range, inclusive on both ends.
func (r MonthRange) Contains(d Date) bool {
	return d.Compare(r.Start) >= 0 && d.Compare(r.End) <= 0
}
