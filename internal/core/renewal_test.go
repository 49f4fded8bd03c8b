package core

import "testing"

func TestRenewsOn(t *testing.T) {
	sub := Subscription{Name: "Gym", Price: MustMoney("35"), Category: CategoryHealth, StartDate: NewDate(2025, 1, 31), Active: true}
	cases := []struct {
		name string
		sub  Subscription
		day  Date
		want bool
	}{
		{"start date itself", sub, NewDate(2025, 1, 31), true},
		{"before start", sub, NewDate(2024, 12, 31), false},
		{"clamped to february end", sub, NewDate(2025, 2, 28), true},
		{"clamped to leap february end", sub, NewDate(2028, 2, 29), true},
		{"thirty day month", sub, NewDate(2025, 4, 30), true},
		{"regular month", sub, NewDate(2025, 3, 31), true},
		{"other day", sub, NewDate(2025, 3, 30), false},
		{"inactive", Subscription{StartDate: NewDate(2025, 1, 31)}, NewDate(2025, 3, 31), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := RenewsOn(tc.sub, tc.day); got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNextRenewal(t *testing.T) {
	sub := Subscription{StartDate: NewDate(2025, 1, 31), Active: true}
	cases := []struct {
		from string
		want string
	}{
		{"2024-06-01", "2025-01-31"},
		{"2025-02-01", "2025-02-28"},
		{"2025-03-31", "2025-03-31"},
		{"2025-04-01", "2025-04-30"},
		{"2025-12-31", "2025-12-31"},
	}
	for _, tc := range cases {
		from, err := ParseDate(tc.from)
		if err != nil {
			t.Fatal(err)
		}
		if got := NextRenewal(sub, from).String(); got != tc.want {
			t.Fatalf("from %s: got %s, want %s", tc.from, got, tc.want)
		}
	}
	mid := Subscription{StartDate: NewDate(2025, 1, 15), Active: true}
	if got := NextRenewal(mid, NewDate(2025, 12, 20)).String(); got != "2026-01-15" {
		t.Fatalf("year rollover: got %s", got)
	}
}
