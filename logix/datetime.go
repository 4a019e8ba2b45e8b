package logix

import (
	"strconv"
	"strings"
	"time"

	"github.com/tnunnink/LogixHelper/errs"
)

// Layouts for the Date/Time radixes. DateTime counts microseconds since the
// Unix epoch, DateTimeNs counts 100ns ticks; both render in local time with
// the UTC offset in parentheses.
const (
	layoutDateTime   = "2006-01-02-15:04:05.000000(UTC-07:00)"
	layoutDateTimeNs = "2006-01-02-15:04:05.0000000(UTC-07:00)"

	ticksPerSecond = 10_000_000
)

// Location is the zone Date/Time values are rendered in. Parsing honours the
// offset written in the text, so changing it never breaks round trips.
var Location = time.Local

func (r Radix) layout() string {
	if r == DateTimeNs {
		return layoutDateTimeNs
	}
	return layoutDateTime
}

// Time returns the instant a Date/Time encoded LINT represents.
func (r Radix) Time(v int64) time.Time {
	if r == DateTimeNs {
		return time.Unix(v/ticksPerSecond, (v%ticksPerSecond)*100)
	}
	return time.UnixMicro(v)
}

func (r Radix) convertDateTime(a *Atomic) (string, error) {
	t := r.Time(a.Int64()).In(Location)
	if t.Year() < 1 || t.Year() > 9999 {
		return "", &errs.RangeError{
			What:  "value",
			Value: strconv.FormatInt(a.Int64(), 10),
			Limit: r.String() + " years 0001-9999",
		}
	}
	return r.Specifier() + t.Format(r.layout()), nil
}

func (r Radix) parseDateTime(text string) (int64, error) {
	t, err := time.Parse(r.layout(), strings.TrimPrefix(text, r.Specifier()))
	if err != nil {
		return 0, &errs.FormatError{Input: text, Expected: r.String()}
	}
	if r == DateTimeNs {
		return t.Unix()*ticksPerSecond + int64(t.Nanosecond()/100), nil
	}
	return t.UnixMicro(), nil
}
