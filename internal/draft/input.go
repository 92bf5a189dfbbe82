package draft

import (
	"strconv"
	"strings"
	"time"
)

// LocalInputLayout is the datetime-local field format.
const LocalInputLayout = "2006-01-02T15:04"

// FormatLocalInput renders t for a datetime field.
func FormatLocalInput(t time.Time) string {
	return t.Format(LocalInputLayout)
}

// ParseLocalInput reads a datetime field in loc. Values typed loosely
// (single-digit parts, seconds) are accepted too: missing parts fall back to
// the first month/day and midnight; an unusable value yields now.
func ParseLocalInput(value string, loc *time.Location, now time.Time) time.Time {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation(LocalInputLayout, value, loc); err == nil {
		return t
	}
	return parseLenient(value, loc, now)
}

func parseLenient(value string, loc *time.Location, now time.Time) time.Time {
	datePart, timePart, ok := strings.Cut(value, "T")
	if !ok || datePart == "" || timePart == "" {
		return now
	}
	dp := strings.Split(datePart, "-")
	tp := strings.Split(timePart, ":")
	if len(dp) != 3 || len(tp) < 2 {
		return now
	}
	year, err := strconv.Atoi(dp[0])
	if err != nil {
		return now
	}
	month := atoiOr(dp[1], 1)
	day := atoiOr(dp[2], 1)
	hour := atoiOr(tp[0], 0)
	minute := atoiOr(tp[1], 0)
	if month == 0 {
		month = 1
	}
	if day == 0 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, loc)
}

func atoiOr(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
