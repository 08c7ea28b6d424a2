package calendar

// InvalidRuleError reports a malformed recurrence configuration: a
// non-positive interval, an unknown frequency, a day-of-week set on a
// non-weekly rule, or an unparseable end date.
type InvalidRuleError struct {
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return "invalid recurrence rule: " + e.Reason
}
