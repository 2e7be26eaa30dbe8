// Package milidate converts the compact military timestamp operators type
// into occurrence forms (DDHHMMMESAA, e.g. 151435DEZ25) to and from time
// values.
package milidate

import (
	"strconv"
	"strings"
	"time"
)

// TokenLen is the minimum accepted token length: DD HHMM MES AA.
const TokenLen = 11

var monthByCode = map[string]time.Month{
	"JAN": time.January,
	"FEV": time.February,
	"MAR": time.March,
	"ABR": time.April,
	"MAI": time.May,
	"JUN": time.June,
	"JUL": time.July,
	"AGO": time.August,
	"SET": time.September,
	"OUT": time.October,
	"NOV": time.November,
	"DEZ": time.December,
}

var codeByMonth = map[time.Month]string{
	time.January:   "JAN",
	time.February:  "FEV",
	time.March:     "MAR",
	time.April:     "ABR",
	time.May:       "MAI",
	time.June:      "JUN",
	time.July:      "JUL",
	time.August:    "AGO",
	time.September: "SET",
	time.October:   "OUT",
	time.November:  "NOV",
	time.December:  "DEZ",
}

// Parse converts a raw token into a timestamp in loc. The boolean reports
// whether the token was valid; malformed input yields (zero, false), never an
// error, so callers can turn absence into their own validation failure.
// Two-digit years are always read as 20YY.
func Parse(raw string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	token := strings.TrimSpace(raw)
	if len(token) < TokenLen {
		return time.Time{}, false
	}
	day, err := strconv.Atoi(token[0:2])
	if err != nil {
		return time.Time{}, false
	}
	hour, err := strconv.Atoi(token[2:4])
	if err != nil {
		return time.Time{}, false
	}
	minute, err := strconv.Atoi(token[4:6])
	if err != nil {
		return time.Time{}, false
	}
	month, ok := monthByCode[strings.ToUpper(token[6:9])]
	if !ok {
		return time.Time{}, false
	}
	yy, err := strconv.Atoi(token[9:11])
	if err != nil {
		return time.Time{}, false
	}
	year := 2000 + yy
	if day < 1 || day > daysIn(month, year) || hour > 23 || minute > 59 {
		return time.Time{}, false
	}
	return time.Date(year, month, day, hour, minute, 0, 0, loc), true
}

// Format renders a timestamp back to DDHHMMMESAA. Zero times render empty.
func Format(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("021504") + codeByMonth[t.Month()] + t.Format("06")
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
