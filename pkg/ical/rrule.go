package ical

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"bndy-backend/pkg/models"
)

// RuleFromRRule translates a raw RRULE string from an imported calendar
// into the internal recurrence rule. Only the cadences the event model
// supports (daily/weekly/monthly) translate; anything else fails so the
// import flow can keep the raw text and let the user decide.
func RuleFromRRule(raw string) (*models.RecurrenceRule, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty RRULE")
	}
	opt, err := rrule.StrToROption(raw)
	if err != nil {
		return nil, fmt.Errorf("unparseable RRULE %q: %w", raw, err)
	}

	rule := &models.RecurrenceRule{Interval: opt.Interval}
	switch opt.Freq {
	case rrule.DAILY:
		rule.Frequency = models.FreqDaily
	case rrule.WEEKLY:
		rule.Frequency = models.FreqWeekly
	case rrule.MONTHLY:
		rule.Frequency = models.FreqMonthly
	default:
		return nil, fmt.Errorf("unsupported RRULE frequency in %q", raw)
	}

	if opt.Count > 0 {
		rule.Count = opt.Count
	}
	if !opt.Until.IsZero() {
		rule.EndDate = models.FormatDate(opt.Until)
	}
	for _, wd := range opt.Byweekday {
		// rrule weekdays are Monday-based (MO=0); ours follow time.Weekday.
		rule.Weekdays = append(rule.Weekdays, time.Weekday((wd.Day()+1)%7))
	}

	rule.Normalize()
	return rule, nil
}
