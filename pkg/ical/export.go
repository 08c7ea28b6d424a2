package ical

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"bndy-backend/pkg/models"
)

// uidDomain is the fixed suffix appended to event IDs so the same event
// always serializes to the same UID. Calendar clients rely on stable UIDs
// to sync instead of duplicating entries.
const uidDomain = "bndy.live"

const attributionFooter = "Exported from bndy"

// Duration handling for timed events: a floor so zero-length or absurdly
// short entries render usefully, and a default when no end time was given.
const (
	minEventDuration     = 60 * time.Minute
	defaultEventDuration = 2 * time.Hour
)

// ExportOptions control filtering and presentation of a calendar export.
type ExportOptions struct {
	// IncludePrivateEvents keeps non-public events in the export.
	IncludePrivateEvents bool
	// MembershipID, when set, narrows the export to events owned by that
	// membership: one member's personal schedule, excluding artist-wide
	// events.
	MembershipID string
	// ArtistName is the organizer display name on each event.
	ArtistName string
}

// FilterForExport applies the caller's export filters before serialization.
func FilterForExport(events []models.Event, opts ExportOptions) []models.Event {
	filtered := make([]models.Event, 0, len(events))
	for _, ev := range events {
		if !ev.IsPublic && !opts.IncludePrivateEvents {
			continue
		}
		if opts.MembershipID != "" && ev.MembershipID != opts.MembershipID {
			continue
		}
		filtered = append(filtered, ev)
	}
	return filtered
}

// Serialize renders events as an RFC 5545 VCALENDAR. The export is
// all-or-nothing: any structural failure returns an ExportError and no
// partial text.
func Serialize(events []models.Event, opts ExportOptions) (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//bndy//calendar export//EN")

	for _, ev := range FilterForExport(events, opts) {
		vevent, err := buildVEvent(ev, opts)
		if err != nil {
			return "", &ExportError{Err: err}
		}
		cal.Children = append(cal.Children, vevent.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", &ExportError{Err: err}
	}
	return buf.String(), nil
}

// EventUID returns the deterministic iCal UID for an event.
func EventUID(eventID string) string {
	return eventID + "@" + uidDomain
}

func buildVEvent(ev models.Event, opts ExportOptions) (*ical.Event, error) {
	start, err := ev.StartDate()
	if err != nil {
		return nil, fmt.Errorf("event %s: invalid date %q", ev.ID, ev.Date)
	}

	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, EventUID(ev.ID))
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stampFor(ev))
	vevent.Props.SetText(ical.PropSummary, ev.DisplayTitle())
	vevent.Props.SetText(ical.PropDescription, buildDescription(ev, opts))
	vevent.Props.SetText(ical.PropCategories, ev.Type.Category())

	if ev.Location != "" {
		vevent.Props.SetText(ical.PropLocation, ev.Location)
	}

	organizer := ical.NewProp(ical.PropOrganizer)
	organizer.Value = "mailto:no-reply@" + uidDomain
	if opts.ArtistName != "" {
		organizer.Params.Set(ical.ParamCommonName, opts.ArtistName)
	}
	vevent.Props.Set(organizer)

	if ev.IsAllDay() {
		if err := setAllDaySpan(vevent, ev, start); err != nil {
			return nil, err
		}
	} else {
		if err := setTimedSpan(vevent, ev, start); err != nil {
			return nil, err
		}
	}

	return vevent, nil
}

// setAllDaySpan emits a date-only DTSTART with a whole-day DURATION. The
// end date follows the SPA's exclusive convention, so the duration is the
// ceiling of the day difference, never less than one day.
func setAllDaySpan(vevent *ical.Event, ev models.Event, start time.Time) error {
	dtstart := ical.NewProp(ical.PropDateTimeStart)
	dtstart.SetValueType(ical.ValueDate)
	dtstart.Value = start.Format("20060102")
	vevent.Props.Set(dtstart)

	days := 1
	if ev.EndDate != "" {
		end, err := models.ParseDate(ev.EndDate)
		if err != nil {
			return fmt.Errorf("event %s: invalid end date %q", ev.ID, ev.EndDate)
		}
		span := end.Sub(start)
		days = int(span / (24 * time.Hour))
		if span%(24*time.Hour) != 0 {
			days++
		}
		if days < 1 {
			days = 1
		}
	}
	setDuration(vevent, fmt.Sprintf("P%dD", days))
	return nil
}

// setTimedSpan emits a date-time DTSTART with a DURATION in minutes,
// defaulting to two hours when no end is given and enforcing the one-hour
// floor either way.
func setTimedSpan(vevent *ical.Event, ev models.Event, start time.Time) error {
	startAt, err := atTime(start, ev.StartTime)
	if err != nil {
		return fmt.Errorf("event %s: invalid start time %q", ev.ID, ev.StartTime)
	}
	vevent.Props.SetDateTime(ical.PropDateTimeStart, startAt)

	duration := defaultEventDuration
	if ev.EndTime != "" {
		endDay := start
		if ev.EndDate != "" {
			endDay, err = models.ParseDate(ev.EndDate)
			if err != nil {
				return fmt.Errorf("event %s: invalid end date %q", ev.ID, ev.EndDate)
			}
		}
		endAt, err := atTime(endDay, ev.EndTime)
		if err != nil {
			return fmt.Errorf("event %s: invalid end time %q", ev.ID, ev.EndTime)
		}
		duration = endAt.Sub(startAt)
	}
	minutes := int(duration / time.Minute)
	if minutes < int(minEventDuration/time.Minute) {
		minutes = int(minEventDuration / time.Minute)
	}
	setDuration(vevent, fmt.Sprintf("PT%dM", minutes))
	return nil
}

func setDuration(vevent *ical.Event, value string) {
	p := ical.NewProp(ical.PropDuration)
	p.SetValueType(ical.ValueDuration)
	p.Value = value
	vevent.Props.Set(p)
}

func buildDescription(ev models.Event, opts ExportOptions) string {
	lines := []string{ev.Type.Label()}
	if strings.TrimSpace(ev.Notes) != "" {
		lines = append(lines, ev.Notes)
	}
	if opts.ArtistName != "" {
		lines = append(lines, "Artist: "+opts.ArtistName)
	}
	if ev.IsPublic {
		lines = append(lines, "Visibility: public")
	} else {
		lines = append(lines, "Visibility: private")
	}
	lines = append(lines, attributionFooter)
	return strings.Join(lines, "\n")
}

// stampFor picks a DTSTAMP: the event's last modification when known, so
// re-exports of an unchanged event are byte-stable.
func stampFor(ev models.Event) time.Time {
	if !ev.UpdatedAt.IsZero() {
		return ev.UpdatedAt.UTC()
	}
	if !ev.CreatedAt.IsZero() {
		return ev.CreatedAt.UTC()
	}
	return time.Now().UTC()
}

// atTime combines a midnight-UTC date with an HH:MM wire time.
func atTime(day time.Time, hhmm string) (time.Time, error) {
	t, err := time.Parse(models.TimeLayout, hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

// ExportFilename builds the download filename for an artist's calendar
// export: <sanitized-artist-name>-calendar-<iso-date>[-suffix].ics
func ExportFilename(artistName string, on time.Time, suffix string) string {
	name := sanitizeName(artistName)
	if name == "" {
		name = "artist"
	}
	filename := name + "-calendar-" + on.Format(models.DateLayout)
	if suffix != "" {
		filename += "-" + sanitizeName(suffix)
	}
	return filename + ".ics"
}

func sanitizeName(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
