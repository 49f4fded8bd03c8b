package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestResolveRange(t *testing.T) {
	madrid, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		madrid = time.FixedZone("CET", 3600)
	}
	cases := []struct {
		name  string
		in    time.Time
		key   string
		start string
		end   string
	}{
		{"mid september", time.Date(2025, 9, 17, 15, 4, 0, 0, time.UTC), "2025-09", "2025-09-01", "2025-09-30"},
		{"leap february", time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), "2024-02", "2024-02-01", "2024-02-29"},
		{"common february", time.Date(2025, 2, 10, 0, 0, 0, 0, time.UTC), "2025-02", "2025-02-01", "2025-02-28"},
		{"december", time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC), "2025-12", "2025-12-01", "2025-12-31"},
		// Just after local midnight on the 1st: UTC would still say the previous month.
		{"local first of month", time.Date(2025, 10, 1, 0, 30, 0, 0, madrid), "2025-10", "2025-10-01", "2025-10-31"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := ResolveRange(tc.in)
			if r.Key.String() != tc.key || r.Start.String() != tc.start || r.End.String() != tc.end {
				t.Fatalf("got %s %s..%s, want %s %s..%s", r.Key, r.Start, r.End, tc.key, tc.start, tc.end)
			}
			if r.Start.Location() != tc.in.Location() {
				t.Fatalf("range left the input location")
			}
		})
	}
}

func TestResolveRangeSameMonthIsStable(t *testing.T) {
	a := ResolveRange(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	b := ResolveRange(time.Date(2025, 3, 31, 23, 0, 0, 0, time.UTC))
	if a.Key != b.Key || !a.Start.SameDay(b.Start) || !a.End.SameDay(b.End) {
		t.Fatalf("same month resolved differently: %+v vs %+v", a, b)
	}
}

func TestMonthKeyNavigation(t *testing.T) {
	k := MonthKey{Year: 2025, Month: time.December}
	if got := k.Next().String(); got != "2026-01" {
		t.Fatalf("next: got %s", got)
	}
	if got := (MonthKey{Year: 2025, Month: time.January}).Prev().String(); got != "2024-12" {
		t.Fatalf("prev: got %s", got)
	}
	if !(MonthKey{Year: 2024, Month: 12}).Before(MonthKey{Year: 2025, Month: 1}) {
		t.Fatalf("ordering broken across years")
	}
}

func TestParseMonthKey(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2025-09", true},
		{"0999-01", true},
		{"2025-9", false},
		{"2025-13", false},
		{"2025-00", false},
		{"25-09", false},
		{"septiembre", false},
	}
	for _, tc := range cases {
		k, err := ParseMonthKey(tc.in)
		if tc.ok && (err != nil || k.String() != tc.in) {
			t.Fatalf("%q: got %v %v", tc.in, k, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q: expected error", tc.in)
		}
	}
}

func TestDateCompareIgnoresLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	a := Date{Time: time.Date(2025, 5, 1, 0, 0, 0, 0, tokyo)}
	b := NewDate(2025, 5, 1)
	if !a.SameDay(b) {
		t.Fatalf("expected same calendar day")
	}
	if a.AddDays(30).String() != "2025-05-31" || a.AddDays(31).String() != "2025-06-01" {
		t.Fatalf("unexpected AddDays results")
	}
	r := MonthKey{Year: 2025, Month: time.May}.Range(tokyo)
	if !r.Contains(NewDate(2025, 5, 31)) || r.Contains(NewDate(2025, 6, 1)) {
		t.Fatalf("range containment broken")
	}
}

func TestDateJSON(t *testing.T) {
	var v struct {
		D Date `json:"d"`
	}
	if err := json.Unmarshal([]byte(`{"d":"2025-09-01"}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.D.String() != "2025-09-01" {
		t.Fatalf("got %s", v.D)
	}
	if err := json.Unmarshal([]byte(`{"d":"01/09/2025"}`), &v); err == nil {
		t.Fatalf("expected error for foreign layout")
	}
}
