package export

import (
	"strconv"
	"time"
)

// TimestampLayout is the storefront timestamp format, offset included.
const TimestampLayout = "2006-01-02 15:04:05 -0700"

const dateLayout = "2006-01-02"

// formatMinor renders minor units as a fixed two-decimal amount.
func formatMinor(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := v % 100
	out := sign + strconv.FormatInt(v/100, 10) + "."
	if cents < 10 {
		out += "0"
	}
	return out + strconv.FormatInt(cents, 10)
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatBool(v bool) string {
	if v {
		return "True"
	}
	return "False"
}

func formatYesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimestampLayout)
}
