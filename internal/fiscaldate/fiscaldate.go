// Package fiscaldate parses and normalizes the calendar dates used in the
// product ledger. Order dates arrive from the remote store in several
// formats (ISO-8601 or day/month/year with "/" or "." separators); sale and
// withdrawal dates are strictly German DD.MM.YYYY. All dates are reduced to
// a canonical day-granular value so they compare and sort deterministically.
package fiscaldate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Date is a canonical calendar date. The zero value is not valid; use
// Sentinel for the historical 1970-01-01 fallback.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const (
	minYear = 1900
	maxYear = 2200
)

// Sentinel is the fallback date substituted for unparseable input so that a
// single malformed record never aborts a whole batch.
func Sentinel() Date {
	return Date{Year: 1970, Month: time.January, Day: 1}
}

func New(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// FromTime truncates a time.Time to its calendar date.
func FromTime(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

func (d Date) IsZero() bool {
	return d == Date{}
}

// IsSentinel reports whether d is the malformed-input fallback.
func (d Date) IsSentinel() bool {
	return d == Sentinel()
}

// Time returns the date at midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}

	if d.Month != other.Month {
		return d.Month < other.Month
	}

	return d.Day < other.Day
}

func (d Date) After(other Date) bool {
	return other.Before(d)
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// String formats as DD/MM/YYYY, the ledger's canonical order-date form.
func (d Date) String() string {
	return fmt.Sprintf("%02d/%02d/%04d", d.Day, d.Month, d.Year)
}

// German formats as DD.MM.YYYY.
func (d Date) German() string {
	return fmt.Sprintf("%02d.%02d.%04d", d.Day, d.Month, d.Year)
}

// ISO formats as YYYY-MM-DD.
func (d Date) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// MarshalJSON encodes as an ISO "YYYY-MM-DD" string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.ISO() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", s, err)
	}

	*d = FromTime(t)

	return nil
}

var dmyPattern = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})[/.](\d{4})$`)

// ParseOrderDate accepts an ISO-8601 string (date, or date-time with T/Z
// suffix) or a day/month/year string with "/" or "." separators and 1-2
// digit day and month. The result must be a real calendar date with a year
// in [1900, 2200]. Callers decide whether to substitute Sentinel on error.
func ParseOrderDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Date{}, fmt.Errorf("empty date")
	}

	looksISO := strings.Contains(s, "T") || strings.Contains(s, "Z") || strings.Count(s, "-") == 2
	if looksISO {
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
			if t, err := time.Parse(layout, s); err == nil {
				d := FromTime(t)
				if d.Year < minYear || d.Year > maxYear {
					return Date{}, fmt.Errorf("year %d out of range", d.Year)
				}

				return d, nil
			}
		}

		return Date{}, fmt.Errorf("unparseable ISO date %q", raw)
	}

	m := dmyPattern.FindStringSubmatch(s)
	if m == nil {
		return Date{}, fmt.Errorf("unrecognized date format %q", raw)
	}

	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])

	return newValidated(year, month, day, raw)
}

// ParseGermanDate parses a strict DD.MM.YYYY string (sale and withdrawal
// dates). Single-digit day or month is also accepted.
func ParseGermanDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)

	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("expected DD.MM.YYYY, got %q", raw)
	}

	day, err1 := strconv.Atoi(parts[0])
	month, err2 := strconv.Atoi(parts[1])
	year, err3 := strconv.Atoi(parts[2])

	if err1 != nil || err2 != nil || err3 != nil || len(parts[2]) != 4 {
		return Date{}, fmt.Errorf("expected DD.MM.YYYY, got %q", raw)
	}

	return newValidated(year, month, day, raw)
}

func newValidated(year, month, day int, raw string) (Date, error) {
	if year < minYear || year > maxYear {
		return Date{}, fmt.Errorf("year %d out of range in %q", year, raw)
	}

	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("month %d out of range in %q", month, raw)
	}

	// Round-tripping through time.Time catches impossible dates such as
	// 30.02: the stdlib normalizes them to the next month.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return Date{}, fmt.Errorf("impossible calendar date %q", raw)
	}

	return Date{Year: year, Month: time.Month(month), Day: day}, nil
}

// ParseDelay parses a withdrawal delay such as "0d", "14d" or "180d" into a
// number of days.
func ParseDelay(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	if !strings.HasSuffix(s, "d") {
		return 0, fmt.Errorf("expected day suffix in delay %q", raw)
	}

	days, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
	if err != nil || days < 0 {
		return 0, fmt.Errorf("invalid delay %q", raw)
	}

	return days, nil
}

// EndOfQuarter maps a date to the last calendar day of its fiscal quarter
// (31 Mar, 30 Jun, 30 Sep, 31 Dec).
func EndOfQuarter(d Date) Date {
	switch {
	case d.Month <= time.March:
		return Date{Year: d.Year, Month: time.March, Day: 31}
	case d.Month <= time.June:
		return Date{Year: d.Year, Month: time.June, Day: 30}
	case d.Month <= time.September:
		return Date{Year: d.Year, Month: time.September, Day: 30}
	default:
		return Date{Year: d.Year, Month: time.December, Day: 31}
	}
}
