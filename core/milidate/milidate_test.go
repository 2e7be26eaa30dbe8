package milidate

import (
	"testing"
	"time"
)

func TestParseValidTokens(t *testing.T) {
	cases := []struct {
		token string
		want  time.Time
	}{
		{"151435DEZ25", time.Date(2025, time.December, 15, 14, 35, 0, 0, time.UTC)},
		{"010000jan00", time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"312359dez99", time.Date(2099, time.December, 31, 23, 59, 0, 0, time.UTC)},
		{"290230FEV24", time.Date(2024, time.February, 29, 2, 30, 0, 0, time.UTC)},
		{"050701Mai26", time.Date(2026, time.May, 5, 7, 1, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, ok := Parse(tc.token, time.UTC)
		if !ok {
			t.Fatalf("Parse(%q) rejected", tc.token)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("Parse(%q) = %v, want %v", tc.token, got, tc.want)
		}
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"151435DEZ2",  // 10 chars, one short of the minimum
		"1514DEZ25",   // missing minute digits
		"151435XYZ25", // unknown month code
		"321435DEZ25", // day out of range
		"152435DEZ25", // hour out of range
		"151465DEZ25", // minute out of range
		"300230FEV23", // Feb 30
		"AB1435DEZ25", // non-numeric day
	}
	for _, token := range cases {
		if _, ok := Parse(token, time.UTC); ok {
			t.Fatalf("Parse(%q) accepted, want rejection", token)
		}
	}
}

func TestParseYearAlwaysTwoThousands(t *testing.T) {
	got, ok := Parse("151435DEZ99", time.UTC)
	if !ok {
		t.Fatal("token rejected")
	}
	if got.Year() != 2099 {
		t.Fatalf("year = %d, want 2099", got.Year())
	}
}

func TestParseExtraTrailingCharactersIgnored(t *testing.T) {
	got, ok := Parse("151435DEZ25xx", time.UTC)
	if !ok {
		t.Fatal("token rejected")
	}
	if got.Day() != 15 || got.Year() != 2025 {
		t.Fatalf("unexpected result %v", got)
	}
}

func TestFormatRoundTrip(t *testing.T) {
	tokens := []string{"010700JAN25", "150700JUN24", "310700DEZ26", "280700FEV23"}
	for _, token := range tokens {
		parsed, ok := Parse(token, time.UTC)
		if !ok {
			t.Fatalf("Parse(%q) rejected", token)
		}
		if got := Format(parsed); got != token {
			t.Fatalf("Format(Parse(%q)) = %q", token, got)
		}
	}
}

func TestFormatZero(t *testing.T) {
	if got := Format(time.Time{}); got != "" {
		t.Fatalf("Format(zero) = %q, want empty", got)
	}
}
