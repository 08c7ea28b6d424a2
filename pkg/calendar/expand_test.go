package calendar

import (
	"errors"
	"testing"
	"time"

	"bndy-backend/pkg/models"
)

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := models.ParseDate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func dateStrings(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, models.FormatDate(d))
	}
	return out
}

func expectDates(t *testing.T, got []time.Time, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d dates %v, want %d %v", len(got), dateStrings(got), len(want), want)
	}
	for i, d := range got {
		if models.FormatDate(d) != want[i] {
			t.Fatalf("date %d: got %s, want %s (full: %v)", i, models.FormatDate(d), want[i], dateStrings(got))
		}
	}
}

func TestExpandDaily(t *testing.T) {
	rule := models.RecurrenceRule{Frequency: models.FreqDaily, Interval: 1}
	dates, err := Expand(rule,
		mustDate(t, "2025-03-10"),
		mustDate(t, "2025-03-10"),
		mustDate(t, "2025-03-13"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	expectDates(t, dates, "2025-03-10", "2025-03-11", "2025-03-12", "2025-03-13")
}

func TestExpandDailyInterval(t *testing.T) {
	rule := models.RecurrenceRule{Frequency: models.FreqDaily, Interval: 3}
	dates, err := Expand(rule,
		mustDate(t, "2025-03-01"),
		mustDate(t, "2025-03-01"),
		mustDate(t, "2025-03-10"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	expectDates(t, dates, "2025-03-01", "2025-03-04", "2025-03-07", "2025-03-10")
}

func TestExpandWeekly(t *testing.T) {
	// 2025-04-01 is a Tuesday; plain weekly repeats the anchor weekday.
	rule := models.RecurrenceRule{Frequency: models.FreqWeekly, Interval: 2}
	dates, err := Expand(rule,
		mustDate(t, "2025-04-01"),
		mustDate(t, "2025-04-01"),
		mustDate(t, "2025-05-31"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	expectDates(t, dates, "2025-04-01", "2025-04-15", "2025-04-29", "2025-05-13", "2025-05-27")
	for i := 1; i < len(dates); i++ {
		if gap := dates[i].Sub(dates[i-1]); gap != 14*24*time.Hour {
			t.Fatalf("gap between occurrences %d and %d is %v, want 14 days", i-1, i, gap)
		}
	}
}

func TestExpandWeeklyDaySet(t *testing.T) {
	// Monday and Wednesday of each week, anchored mid-week: the first
	// Monday precedes the anchor and must not appear.
	rule := models.RecurrenceRule{
		Frequency: models.FreqWeekly,
		Interval:  1,
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
	}
	// 2025-04-02 is a Wednesday.
	dates, err := Expand(rule,
		mustDate(t, "2025-04-02"),
		mustDate(t, "2025-04-01"),
		mustDate(t, "2025-04-14"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	expectDates(t, dates, "2025-04-02", "2025-04-07", "2025-04-09", "2025-04-14")
}

func TestExpandMonthlyClampsShortMonths(t *testing.T) {
	// Anchored on the 31st: February yields its last day, not a skip.
	rule := models.RecurrenceRule{Frequency: models.FreqMonthly, Interval: 1}
	dates, err := Expand(rule,
		mustDate(t, "2024-01-31"),
		mustDate(t, "2024-01-01"),
		mustDate(t, "2024-05-31"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	expectDates(t, dates, "2024-01-31", "2024-02-29", "2024-03-31", "2024-04-30", "2024-05-31")
}

func TestExpandMonthlyNonLeapFebruary(t *testing.T) {
	rule := models.RecurrenceRule{Frequency: models.FreqMonthly, Interval: 1}
	dates, err := Expand(rule,
		mustDate(t, "2025-01-30"),
		mustDate(t, "2025-02-01"),
		mustDate(t, "2025-02-28"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	expectDates(t, dates, "2025-02-28")
}

func TestExpandCountConsumedBelowWindow(t *testing.T) {
	// Five daily occurrences starting 2025-01-01. A window opening on the
	// 4th sees only the last two: the first three were generated and
	// counted even though they fall before the window.
	rule := models.RecurrenceRule{Frequency: models.FreqDaily, Interval: 1, Count: 5}
	dates, err := Expand(rule,
		mustDate(t, "2025-01-01"),
		mustDate(t, "2025-01-04"),
		mustDate(t, "2025-01-31"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	expectDates(t, dates, "2025-01-04", "2025-01-05")
}

func TestExpandUntilInclusive(t *testing.T) {
	rule := models.RecurrenceRule{Frequency: models.FreqDaily, Interval: 1, EndDate: "2025-06-03"}
	dates, err := Expand(rule,
		mustDate(t, "2025-06-01"),
		mustDate(t, "2025-06-01"),
		mustDate(t, "2025-06-30"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	expectDates(t, dates, "2025-06-01", "2025-06-02", "2025-06-03")
}

func TestExpandAnchorAfterWindow(t *testing.T) {
	rule := models.RecurrenceRule{Frequency: models.FreqDaily, Interval: 1}
	dates, err := Expand(rule,
		mustDate(t, "2025-07-01"),
		mustDate(t, "2025-06-01"),
		mustDate(t, "2025-06-30"))
	if err != nil {
		t.Fatalf("Expand: %v", err)
	}
	if len(dates) != 0 {
		t.Fatalf("expected no occurrences, got %v", dateStrings(dates))
	}
}

func TestExpandInvalidRules(t *testing.T) {
	anchor := mustDate(t, "2025-01-01")
	cases := []struct {
		name string
		rule models.RecurrenceRule
	}{
		{"unknown frequency", models.RecurrenceRule{Frequency: "yearly", Interval: 1}},
		{"zero interval", models.RecurrenceRule{Frequency: models.FreqDaily, Interval: 0}},
		{"negative count", models.RecurrenceRule{Frequency: models.FreqDaily, Interval: 1, Count: -1}},
		{"weekdays on daily", models.RecurrenceRule{
			Frequency: models.FreqDaily, Interval: 1,
			Weekdays: []time.Weekday{time.Monday},
		}},
		{"weekday out of range", models.RecurrenceRule{
			Frequency: models.FreqWeekly, Interval: 1,
			Weekdays: []time.Weekday{time.Weekday(7)},
		}},
		{"bad end date", models.RecurrenceRule{Frequency: models.FreqDaily, Interval: 1, EndDate: "not-a-date"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Expand(tc.rule, anchor, anchor, anchor.AddDate(0, 1, 0))
			var ruleErr *InvalidRuleError
			if !errors.As(err, &ruleErr) {
				t.Fatalf("expected InvalidRuleError, got %v", err)
			}
		})
	}
}

func TestExpandEventNonRecurring(t *testing.T) {
	ev := models.Event{ID: "ev-1", Type: models.EventTypeGig, Date: "2025-08-15"}

	occs, err := ExpandEvent(ev, mustDate(t, "2025-08-01"), mustDate(t, "2025-08-31"))
	if err != nil {
		t.Fatalf("ExpandEvent: %v", err)
	}
	if len(occs) != 1 || occs[0].Date != "2025-08-15" || occs[0].EventID != "ev-1" {
		t.Fatalf("unexpected occurrences: %+v", occs)
	}

	occs, err = ExpandEvent(ev, mustDate(t, "2025-09-01"), mustDate(t, "2025-09-30"))
	if err != nil {
		t.Fatalf("ExpandEvent: %v", err)
	}
	if len(occs) != 0 {
		t.Fatalf("expected no occurrences outside window, got %+v", occs)
	}
}

func TestExpandEventMultiDayOverlapsWindow(t *testing.T) {
	// Spans the window boundary: starts before, ends inside.
	ev := models.Event{ID: "ev-2", Type: models.EventTypeOther, Date: "2025-08-28", EndDate: "2025-09-02"}
	occs, err := ExpandEvent(ev, mustDate(t, "2025-09-01"), mustDate(t, "2025-09-30"))
	if err != nil {
		t.Fatalf("ExpandEvent: %v", err)
	}
	if len(occs) != 1 {
		t.Fatalf("expected multi-day event to overlap window, got %+v", occs)
	}
}

func TestExpandEventRecurring(t *testing.T) {
	ev := models.Event{
		ID:   "ev-3",
		Type: models.EventTypePractice,
		Date: "2025-08-04",
		Recurrence: &models.RecurrenceRule{
			Frequency: models.FreqWeekly,
			Interval:  1,
		},
	}
	occs, err := ExpandEvent(ev, mustDate(t, "2025-08-01"), mustDate(t, "2025-08-31"))
	if err != nil {
		t.Fatalf("ExpandEvent: %v", err)
	}
	want := []string{"2025-08-04", "2025-08-11", "2025-08-18", "2025-08-25"}
	if len(occs) != len(want) {
		t.Fatalf("got %d occurrences, want %d: %+v", len(occs), len(want), occs)
	}
	for i, occ := range occs {
		if occ.Date != want[i] {
			t.Fatalf("occurrence %d: got %s, want %s", i, occ.Date, want[i])
		}
		if occ.EventID != "ev-3" {
			t.Fatalf("occurrence %d has event id %s", i, occ.EventID)
		}
	}
}
