package ical

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-ical"
)

// ParsedEvent is the normalized projection of one imported VEVENT. The raw
// recurrence rule is carried as text and not expanded here; expansion is
// the caller's responsibility once the rule has been translated.
type ParsedEvent struct {
	UID         string    `json:"uid"`
	Summary     string    `json:"summary,omitempty"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end,omitempty"`
	// IsAllDay is true when DTSTART is a date-only value.
	IsAllDay bool `json:"is_all_day"`
	// RawRRule is the untouched RRULE text, empty for one-off events.
	RawRRule     string    `json:"raw_rrule,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	LastModified time.Time `json:"last_modified,omitempty"`
}

// Parse decodes calendar text into parsed events. Malformed input fails the
// whole parse with a ParseError; there is no best-effort recovery, so a
// half-imported calendar can never reach the caller.
func Parse(icalText string) ([]ParsedEvent, error) {
	dec := ical.NewDecoder(strings.NewReader(icalText))
	events := make([]ParsedEvent, 0)

	for {
		cal, err := dec.Decode()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &ParseError{Err: err}
		}

		for _, child := range cal.Children {
			if child.Name != ical.CompEvent {
				continue
			}
			ev, err := parseVEvent(child)
			if err != nil {
				return nil, &ParseError{Err: err}
			}
			events = append(events, ev)
		}
	}

	return events, nil
}

func parseVEvent(comp *ical.Component) (ParsedEvent, error) {
	var ev ParsedEvent

	uidProp := comp.Props.Get(ical.PropUID)
	if uidProp == nil || uidProp.Value == "" {
		return ev, fmt.Errorf("VEVENT is missing a UID")
	}
	ev.UID = uidProp.Value

	if p := comp.Props.Get(ical.PropSummary); p != nil {
		ev.Summary = p.Value
	}
	if p := comp.Props.Get(ical.PropDescription); p != nil {
		ev.Description = p.Value
	}
	if p := comp.Props.Get(ical.PropLocation); p != nil {
		ev.Location = p.Value
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return ev, fmt.Errorf("VEVENT %s is missing DTSTART", ev.UID)
	}
	start, err := parseDateTimeProp(startProp)
	if err != nil {
		return ev, fmt.Errorf("VEVENT %s: %w", ev.UID, err)
	}
	ev.Start = start
	ev.IsAllDay = isDateOnly(startProp)

	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		end, err := parseDateTimeProp(endProp)
		if err != nil {
			return ev, fmt.Errorf("VEVENT %s: %w", ev.UID, err)
		}
		ev.End = end
	}

	if p := comp.Props.Get(ical.PropRecurrenceRule); p != nil {
		ev.RawRRule = p.Value
	}
	if p := comp.Props.Get(ical.PropCreated); p != nil {
		if t, err := p.DateTime(time.UTC); err == nil {
			ev.CreatedAt = t
		}
	}
	if p := comp.Props.Get(ical.PropLastModified); p != nil {
		if t, err := p.DateTime(time.UTC); err == nil {
			ev.LastModified = t
		}
	}

	return ev, nil
}

// isDateOnly reports whether a DTSTART carries a date value rather than a
// date-time: either VALUE=DATE or a value without a time component.
func isDateOnly(prop *ical.Prop) bool {
	if prop.ValueType() == ical.ValueDate {
		return true
	}
	return !strings.Contains(prop.Value, "T")
}

// parseDateTimeProp reads a DATE or DATE-TIME property, falling back to the
// common raw layouts some producers emit without proper parameters.
func parseDateTimeProp(prop *ical.Prop) (time.Time, error) {
	if t, err := prop.DateTime(time.UTC); err == nil {
		return t, nil
	}

	layouts := []string{
		"20060102T150405Z",
		"20060102T150405",
		"20060102",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, prop.Value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse %s value %q", prop.Name, prop.Value)
}
