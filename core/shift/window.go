// Package shift resolves the canonical 24-hour duty window anchored at
// 07:00 local time.
package shift

import (
	"os"
	"strings"
	"time"
)

const (
	AnchorHour = 7
	dateLayout = "2006-01-02"
)

const defaultZone = "America/Sao_Paulo"

// Window is the resolved duty period plus the date strings used to redisplay
// range filters.
type Window struct {
	Start    time.Time
	End      time.Time
	StartStr string
	EndStr   string
}

// Location resolves the duty-window zone: the configured zone when set, the
// TZ env otherwise, falling back to the default Brazilian zone.
func Location(configured string) *time.Location {
	zone := strings.TrimSpace(configured)
	if zone == "" {
		zone = strings.TrimSpace(os.Getenv("TZ"))
	}
	if zone == "" {
		zone = defaultZone
	}
	if loc, err := time.LoadLocation(zone); err == nil {
		return loc
	}
	if loc, err := time.LoadLocation(defaultZone); err == nil {
		return loc
	}
	return time.Local
}

// Resolve computes the duty window. With both date strings present the window
// runs from startStr 07:00 through endStr+1d 06:59:59, so the end day is
// inclusive up to the following morning's hand-off. With either
// absent the window is derived from now: before 07:00 the anchor date is
// yesterday, otherwise today, spanning [anchor 07:00, anchor+24h-1s].
func Resolve(startStr, endStr string, now time.Time) (Window, error) {
	loc := now.Location()
	if startStr != "" && endStr != "" {
		startDay, err := time.ParseInLocation(dateLayout, startStr, loc)
		if err != nil {
			return Window{}, err
		}
		endDay, err := time.ParseInLocation(dateLayout, endStr, loc)
		if err != nil {
			return Window{}, err
		}
		start := time.Date(startDay.Year(), startDay.Month(), startDay.Day(), AnchorHour, 0, 0, 0, loc)
		end := time.Date(endDay.Year(), endDay.Month(), endDay.Day(), AnchorHour-1, 59, 59, 0, loc).AddDate(0, 0, 1)
		return Window{Start: start, End: end, StartStr: startStr, EndStr: endStr}, nil
	}

	anchor := now
	if now.Hour() < AnchorHour {
		anchor = now.AddDate(0, 0, -1)
	}
	start := time.Date(anchor.Year(), anchor.Month(), anchor.Day(), AnchorHour, 0, 0, 0, loc)
	end := start.Add(24*time.Hour - time.Second)
	return Window{
		Start:    start,
		End:      end,
		StartStr: start.Format(dateLayout),
		EndStr:   end.AddDate(0, 0, -1).Format(dateLayout),
	}, nil
}

// Current is the automatic-mode window for now.
func Current(now time.Time) Window {
	w, _ := Resolve("", "", now)
	return w
}
