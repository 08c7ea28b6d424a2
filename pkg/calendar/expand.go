package calendar

import (
	"fmt"
	"sort"
	"time"

	"bndy-backend/pkg/models"
)

// maxOccurrences caps a single expansion so an unbounded rule over a huge
// window cannot run away. Windows queried by the SPA are at most a few
// months, which stays far below this.
const maxOccurrences = 1000

// Expand generates the concrete occurrence dates of a recurring rule that
// fall inside [windowStart, windowEnd] (both inclusive). eventStart anchors
// the recurrence; occurrences generated before windowStart are not emitted
// but still consume a count-based end condition. All arithmetic is
// calendar-based: month steps respect variable month lengths (the 31st
// clamps to the last day of shorter months) and leap years.
//
// Each call returns a fresh slice; there is no shared cursor between calls.
func Expand(rule models.RecurrenceRule, eventStart, windowStart, windowEnd time.Time) ([]time.Time, error) {
	if err := validateRule(rule); err != nil {
		return nil, err
	}
	if windowEnd.Before(windowStart) {
		return nil, nil
	}

	var until time.Time
	hasUntil := rule.EndDate != ""
	if hasUntil {
		t, err := models.ParseDate(rule.EndDate)
		if err != nil {
			return nil, &InvalidRuleError{Reason: fmt.Sprintf("end date %q is not a valid date", rule.EndDate)}
		}
		until = t
	}

	dates := make([]time.Time, 0)
	generated := 0

	// visit applies the end conditions and window bounds to one candidate
	// date. It reports whether generation should stop entirely; candidates
	// are always visited in ascending order.
	visit := func(d time.Time) (stop bool) {
		if hasUntil && d.After(until) {
			return true
		}
		if rule.Count > 0 && generated >= rule.Count {
			return true
		}
		generated++
		if d.After(windowEnd) {
			return true
		}
		if !d.Before(windowStart) {
			dates = append(dates, d)
		}
		return len(dates) >= maxOccurrences
	}

	switch rule.Frequency {
	case models.FreqDaily:
		stepBy(eventStart, rule.Interval*1, visit)
	case models.FreqWeekly:
		if len(rule.Weekdays) == 0 {
			stepBy(eventStart, rule.Interval*7, visit)
		} else {
			stepWeekdays(eventStart, rule.Interval, rule.Weekdays, visit)
		}
	case models.FreqMonthly:
		stepMonthly(eventStart, rule.Interval, visit)
	}

	return dates, nil
}

// ValidateRule checks a recurrence rule without expanding it. Handlers use
// it to reject malformed rules at write time.
func ValidateRule(rule models.RecurrenceRule) error {
	if err := validateRule(rule); err != nil {
		return err
	}
	if rule.EndDate != "" {
		if _, err := models.ParseDate(rule.EndDate); err != nil {
			return &InvalidRuleError{Reason: fmt.Sprintf("end date %q is not a valid date", rule.EndDate)}
		}
	}
	return nil
}

func validateRule(rule models.RecurrenceRule) error {
	if !rule.Frequency.Valid() {
		return &InvalidRuleError{Reason: fmt.Sprintf("unknown frequency %q", rule.Frequency)}
	}
	if rule.Interval < 1 {
		return &InvalidRuleError{Reason: fmt.Sprintf("interval must be >= 1, got %d", rule.Interval)}
	}
	if rule.Count < 0 {
		return &InvalidRuleError{Reason: fmt.Sprintf("count must not be negative, got %d", rule.Count)}
	}
	if len(rule.Weekdays) > 0 && rule.Frequency != models.FreqWeekly {
		return &InvalidRuleError{Reason: "day-of-week set is only valid for weekly rules"}
	}
	for _, wd := range rule.Weekdays {
		if wd < time.Sunday || wd > time.Saturday {
			return &InvalidRuleError{Reason: fmt.Sprintf("invalid weekday %d", wd)}
		}
	}
	return nil
}

// stepBy walks fixed day-sized steps from the anchor.
func stepBy(anchor time.Time, days int, visit func(time.Time) bool) {
	for i, d := 0, anchor; i <= maxOccurrences; i++ {
		if visit(d) {
			return
		}
		d = d.AddDate(0, 0, days)
	}
}

// stepWeekdays walks week blocks of the given interval, emitting the
// requested weekdays (Sunday-based weeks) within each block. Dates before
// the anchor are skipped without counting.
func stepWeekdays(anchor time.Time, interval int, weekdays []time.Weekday, visit func(time.Time) bool) {
	days := make([]time.Weekday, len(weekdays))
	copy(days, weekdays)
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	weekStart := anchor.AddDate(0, 0, -int(anchor.Weekday()))
	for w := 0; w <= maxOccurrences; w++ {
		base := weekStart.AddDate(0, 0, w*interval*7)
		for _, wd := range days {
			d := base.AddDate(0, 0, int(wd))
			if d.Before(anchor) {
				continue
			}
			if visit(d) {
				return
			}
		}
	}
}

// stepMonthly walks month steps from the anchor, keeping the anchor's
// day-of-month and clamping when the target month is shorter.
func stepMonthly(anchor time.Time, interval int, visit func(time.Time) bool) {
	day := anchor.Day()
	for i := 0; i <= maxOccurrences; i++ {
		first := time.Date(anchor.Year(), anchor.Month()+time.Month(i*interval), 1,
			0, 0, 0, 0, anchor.Location())
		d := first.AddDate(0, 0, min(day, daysInMonth(first))-1)
		if visit(d) {
			return
		}
	}
}

func daysInMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ExpandEvent projects an event onto the query window. Non-recurring events
// yield at most one occurrence (when their date span touches the window);
// recurring events yield one occurrence per expanded date.
func ExpandEvent(ev models.Event, windowStart, windowEnd time.Time) ([]models.Occurrence, error) {
	start, err := ev.StartDate()
	if err != nil {
		return nil, fmt.Errorf("event %s has invalid date: %w", ev.ID, err)
	}

	if ev.Recurrence == nil {
		last := start
		if ev.EndDate != "" {
			if end, err := models.ParseDate(ev.EndDate); err == nil && end.After(last) {
				last = end
			}
		}
		if last.Before(windowStart) || start.After(windowEnd) {
			return nil, nil
		}
		e := ev
		return []models.Occurrence{{EventID: ev.ID, Date: ev.Date, Event: &e}}, nil
	}

	dates, err := Expand(*ev.Recurrence, start, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}
	occurrences := make([]models.Occurrence, 0, len(dates))
	for _, d := range dates {
		e := ev
		occurrences = append(occurrences, models.Occurrence{
			EventID: ev.ID,
			Date:    models.FormatDate(d),
			Event:   &e,
		})
	}
	return occurrences, nil
}
