package shift

import (
	"testing"
	"time"
)

func TestAutomaticBeforeAnchorUsesPreviousDay(t *testing.T) {
	now := time.Date(2025, time.March, 10, 6, 59, 0, 0, time.UTC)
	w, err := Resolve("", "", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	wantStart := time.Date(2025, time.March, 9, 7, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", w.Start, wantStart)
	}
	wantEnd := time.Date(2025, time.March, 10, 6, 59, 59, 0, time.UTC)
	if !w.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", w.End, wantEnd)
	}
	if w.StartStr != "2025-03-09" || w.EndStr != "2025-03-09" {
		t.Fatalf("strings = %q / %q", w.StartStr, w.EndStr)
	}
}

func TestAutomaticAtAnchorUsesSameDay(t *testing.T) {
	for _, hour := range []int{7, 8, 23} {
		now := time.Date(2025, time.March, 10, hour, 0, 0, 0, time.UTC)
		w, err := Resolve("", "", now)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		wantStart := time.Date(2025, time.March, 10, 7, 0, 0, 0, time.UTC)
		if !w.Start.Equal(wantStart) {
			t.Fatalf("hour %d: start = %v, want %v", hour, w.Start, wantStart)
		}
	}
}

func TestExplicitModeExtendsEndDay(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	w, err := Resolve("2025-01-10", "2025-01-12", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	wantStart := time.Date(2025, time.January, 10, 7, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", w.Start, wantStart)
	}
	// End day is inclusive: 2025-01-13T07:00:00 minus one second.
	wantEnd := time.Date(2025, time.January, 13, 6, 59, 59, 0, time.UTC)
	if !w.End.Equal(wantEnd) {
		t.Fatalf("end = %v, want %v", w.End, wantEnd)
	}
	if w.StartStr != "2025-01-10" || w.EndStr != "2025-01-12" {
		t.Fatalf("strings = %q / %q", w.StartStr, w.EndStr)
	}
}

func TestExplicitModeRejectsBadDates(t *testing.T) {
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	if _, err := Resolve("10/01/2025", "2025-01-12", now); err == nil {
		t.Fatal("expected parse error")
	}
	if _, err := Resolve("2025-01-10", "nope", now); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLocationPrefersConfiguredZone(t *testing.T) {
	t.Setenv("TZ", "America/Sao_Paulo")
	if got := Location("UTC"); got.String() != "UTC" {
		t.Fatalf("configured zone ignored, got %s", got)
	}
	if got := Location(""); got.String() != "America/Sao_Paulo" {
		t.Fatalf("TZ fallback not applied, got %s", got)
	}
	t.Setenv("TZ", "")
	if got := Location(""); got.String() != defaultZone {
		t.Fatalf("default zone not applied, got %s", got)
	}
}

func TestAutomaticCrossesMonthBoundary(t *testing.T) {
	now := time.Date(2025, time.May, 1, 2, 0, 0, 0, time.UTC)
	w, err := Resolve("", "", now)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	wantStart := time.Date(2025, time.April, 30, 7, 0, 0, 0, time.UTC)
	if !w.Start.Equal(wantStart) {
		t.Fatalf("start = %v, want %v", w.Start, wantStart)
	}
}
