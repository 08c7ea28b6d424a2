package models

import (
	"fmt"
	"strings"
	"time"
)

// Wire formats used by the SPA for calendar dates and times of day.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// EventType is the closed set of calendar event kinds.
type EventType string

const (
	EventTypeGig         EventType = "gig"
	EventTypePractice    EventType = "practice"
	EventTypeRecording   EventType = "recording"
	EventTypeOther       EventType = "other"
	EventTypeUnavailable EventType = "unavailable"
)

// Valid reports whether t is one of the known event types.
func (t EventType) Valid() bool {
	switch t {
	case EventTypeGig, EventTypePractice, EventTypeRecording, EventTypeOther, EventTypeUnavailable:
		return true
	}
	return false
}

// Label returns the display label used when an event has no title.
func (t EventType) Label() string {
	switch t {
	case EventTypeGig:
		return "Gig"
	case EventTypePractice:
		return "Band Rehearsal"
	case EventTypeRecording:
		return "Recording Session"
	case EventTypeUnavailable:
		return "Unavailable"
	default:
		return "Band Event"
	}
}

// Category returns the iCal CATEGORIES value for the event type.
func (t EventType) Category() string {
	switch t {
	case EventTypeGig:
		return "PERFORMANCE"
	case EventTypePractice, EventTypeRecording:
		return "MUSIC"
	case EventTypeUnavailable:
		return "PERSONAL"
	default:
		return "EVENT"
	}
}

// Frequency is the recurrence cadence of a repeating event.
type Frequency string

const (
	FreqDaily   Frequency = "daily"
	FreqWeekly  Frequency = "weekly"
	FreqMonthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FreqDaily, FreqWeekly, FreqMonthly:
		return true
	}
	return false
}

// RecurrenceRule describes how an event repeats. It is owned by exactly one
// event and never shared between events.
type RecurrenceRule struct {
	Frequency Frequency `json:"frequency"`
	// Interval is the cadence multiplier (every N days/weeks/months).
	// Zero means "not set" and is normalized to 1.
	Interval int `json:"interval,omitempty"`
	// EndDate bounds the recurrence (inclusive), wire format YYYY-MM-DD.
	// Empty means no date bound.
	EndDate string `json:"end_date,omitempty"`
	// Count bounds the total number of occurrences. Zero means unbounded.
	Count int `json:"count,omitempty"`
	// Weekdays restricts weekly rules to specific days (0=Sunday..6=Saturday,
	// matching the SPA's JS Date.getDay convention and time.Weekday).
	Weekdays []time.Weekday `json:"days_of_week,omitempty"`
}

// Normalize applies defaults to fields the client may omit.
func (r *RecurrenceRule) Normalize() {
	if r.Interval == 0 {
		r.Interval = 1
	}
}

// Event is a scheduled calendar entry: a gig, rehearsal, recording session,
// other band event, or a member's personal unavailability.
type Event struct {
	ID string `json:"id" db:"id"`
	// ArtistID is empty for personal events.
	ArtistID string    `json:"artist_id,omitempty" db:"artist_id"`
	Type     EventType `json:"type" db:"type"`
	Title    string    `json:"title,omitempty" db:"title"`
	// Date is the (first) calendar date, YYYY-MM-DD.
	Date string `json:"date" db:"date"`
	// EndDate marks the last day of a multi-day span (exclusive for all-day
	// iCal export, matching the SPA's convention).
	EndDate string `json:"end_date,omitempty" db:"end_date"`
	// StartTime/EndTime are times of day (HH:MM); empty means all-day.
	StartTime string `json:"start_time,omitempty" db:"start_time"`
	EndTime   string `json:"end_time,omitempty" db:"end_time"`
	Location  string `json:"location,omitempty" db:"location"`
	Notes     string `json:"notes,omitempty" db:"notes"`
	IsPublic  bool   `json:"is_public" db:"is_public"`
	// MembershipID/UserID record the owning member for personal and
	// unavailability entries. Unavailable events carry exactly one of them.
	MembershipID string          `json:"membership_id,omitempty" db:"membership_id"`
	UserID       string          `json:"user_id,omitempty" db:"user_id"`
	Recurrence   *RecurrenceRule `json:"recurrence,omitempty" db:"-"`
	CreatedAt    time.Time       `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty" db:"updated_at"`
}

// IsAllDay reports whether the event has no time of day.
func (e *Event) IsAllDay() bool {
	return e.StartTime == ""
}

// DisplayTitle returns the title, falling back to the type label.
func (e *Event) DisplayTitle() string {
	if strings.TrimSpace(e.Title) != "" {
		return e.Title
	}
	return e.Type.Label()
}

// StartDate parses the event's calendar date.
func (e *Event) StartDate() (time.Time, error) {
	return ParseDate(e.Date)
}

// Validate checks the invariants enforced at create/update time.
func (e *Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if _, err := ParseDate(e.Date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", e.Date)
	}
	if e.EndDate != "" {
		if _, err := ParseDate(e.EndDate); err != nil {
			return fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", e.EndDate)
		}
	}
	for _, v := range []string{e.StartTime, e.EndTime} {
		if v == "" {
			continue
		}
		if _, err := time.Parse(TimeLayout, v); err != nil {
			return fmt.Errorf("invalid time %q: expected HH:MM", v)
		}
	}
	if e.Type == EventTypeUnavailable {
		// Unavailability must identify exactly one person.
		if (e.MembershipID == "") == (e.UserID == "") {
			return fmt.Errorf("unavailable events require exactly one of membership_id or user_id")
		}
	}
	if e.Recurrence != nil {
		e.Recurrence.Normalize()
	}
	return nil
}

// ParseDate parses a YYYY-MM-DD wire date into midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate renders a time as a YYYY-MM-DD wire date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Occurrence is one concrete date produced by expanding a recurring event.
// It is derived on demand for a query window and never persisted.
type Occurrence struct {
	EventID string `json:"event_id"`
	Date    string `json:"date"`
	Event   *Event `json:"event,omitempty"`
}

// CrossArtistEvent is an event from another artist the user belongs to,
// carried with the originating artist's display name.
type CrossArtistEvent struct {
	Event
	ArtistName string `json:"artist_name"`
}

// CalendarEntry is an aggregated calendar row as rendered by the SPA.
// Cross-artist entries have their title annotated with the origin artist.
type CalendarEntry struct {
	Event
	SourceArtistName string `json:"source_artist_name,omitempty"`
	CrossArtist      bool   `json:"cross_artist,omitempty"`
}
