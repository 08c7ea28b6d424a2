package ical

import (
	"errors"
	"strings"
	"testing"
	"time"

	"bndy-backend/pkg/models"
)

func TestEventUIDDeterministic(t *testing.T) {
	if EventUID("ev-1") != "ev-1@bndy.live" {
		t.Fatalf("got %q", EventUID("ev-1"))
	}
	if EventUID("ev-1") != EventUID("ev-1") {
		t.Fatalf("same event must always produce the same UID")
	}
}

func TestSerializeIdempotent(t *testing.T) {
	events := []models.Event{
		{
			ID:        "ev-1",
			Type:      models.EventTypeGig,
			Title:     "Warehouse show",
			Date:      "2025-10-03",
			StartTime: "20:00",
			EndTime:   "23:00",
			IsPublic:  true,
			UpdatedAt: time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	opts := ExportOptions{ArtistName: "Night Drive"}

	first, err := Serialize(events, opts)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	second, err := Serialize(events, opts)
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if first != second {
		t.Fatalf("re-export of unchanged events must be byte-identical")
	}

	if !strings.Contains(first, "UID:ev-1@bndy.live") {
		t.Fatalf("missing stable UID in output:\n%s", first)
	}
	if !strings.Contains(first, "SUMMARY:Warehouse show") {
		t.Fatalf("missing summary in output:\n%s", first)
	}
	if !strings.Contains(first, "PT180M") {
		t.Fatalf("expected three-hour duration in output:\n%s", first)
	}
}

func TestSerializeAllDaySpan(t *testing.T) {
	events := []models.Event{
		{
			ID:       "ev-2",
			Type:     models.EventTypeRecording,
			Date:     "2025-12-01",
			EndDate:  "2025-12-03",
			IsPublic: true,
		},
	}
	out, err := Serialize(events, ExportOptions{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(out, "VALUE=DATE") || !strings.Contains(out, "20251201") {
		t.Fatalf("expected date-only DTSTART:\n%s", out)
	}
	// End date is exclusive, so a Dec 1 to Dec 3 block lasts two days.
	if !strings.Contains(out, "P2D") {
		t.Fatalf("expected two-day duration:\n%s", out)
	}
}

func TestSerializeSingleDayAllDay(t *testing.T) {
	events := []models.Event{
		{ID: "ev-3", Type: models.EventTypePractice, Date: "2025-12-05", IsPublic: true},
	}
	out, err := Serialize(events, ExportOptions{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(out, "P1D") {
		t.Fatalf("all-day event without end date must last one day:\n%s", out)
	}
}

func TestSerializeShortEventGetsDurationFloor(t *testing.T) {
	events := []models.Event{
		{
			ID:        "ev-4",
			Type:      models.EventTypePractice,
			Date:      "2025-11-10",
			StartTime: "20:00",
			EndTime:   "20:30",
			IsPublic:  true,
		},
	}
	out, err := Serialize(events, ExportOptions{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(out, "PT60M") {
		t.Fatalf("half-hour event must render with the one-hour floor:\n%s", out)
	}
}

func TestSerializeMissingEndTimeDefaults(t *testing.T) {
	events := []models.Event{
		{
			ID:        "ev-5",
			Type:      models.EventTypeGig,
			Date:      "2025-11-11",
			StartTime: "21:00",
			IsPublic:  true,
		},
	}
	out, err := Serialize(events, ExportOptions{})
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if !strings.Contains(out, "PT120M") {
		t.Fatalf("missing end time must default to two hours:\n%s", out)
	}
}

func TestSerializeInvalidDateFailsWhole(t *testing.T) {
	events := []models.Event{
		{ID: "good", Type: models.EventTypeGig, Date: "2025-11-11", IsPublic: true},
		{ID: "bad", Type: models.EventTypeGig, Date: "garbage", IsPublic: true},
	}
	out, err := Serialize(events, ExportOptions{})
	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("expected ExportError, got %v", err)
	}
	if out != "" {
		t.Fatalf("failed export must not return partial text, got %q", out)
	}
}

func TestFilterForExport(t *testing.T) {
	events := []models.Event{
		{ID: "pub", Type: models.EventTypeGig, Date: "2025-11-01", IsPublic: true},
		{ID: "priv", Type: models.EventTypePractice, Date: "2025-11-02"},
		{ID: "mine", Type: models.EventTypeUnavailable, Date: "2025-11-03", MembershipID: "mem-1"},
	}

	got := FilterForExport(events, ExportOptions{})
	if len(got) != 1 || got[0].ID != "pub" {
		t.Fatalf("default export must keep only public events: %+v", got)
	}

	got = FilterForExport(events, ExportOptions{IncludePrivateEvents: true})
	if len(got) != 3 {
		t.Fatalf("include_private must keep everything: %+v", got)
	}

	got = FilterForExport(events, ExportOptions{IncludePrivateEvents: true, MembershipID: "mem-1"})
	if len(got) != 1 || got[0].ID != "mine" {
		t.Fatalf("membership filter must keep only that member's events: %+v", got)
	}
}

func TestExportFilename(t *testing.T) {
	on := time.Date(2025, 11, 20, 10, 0, 0, 0, time.UTC)

	got := ExportFilename("The Midnight Owls", on, "")
	if got != "the-midnight-owls-calendar-2025-11-20.ics" {
		t.Fatalf("got %q", got)
	}

	got = ExportFilename("  Señor Löud!! ", on, "personal")
	if got != "se-or-l-ud-calendar-2025-11-20-personal.ics" {
		t.Fatalf("got %q", got)
	}

	got = ExportFilename("", on, "")
	if got != "artist-calendar-2025-11-20.ics" {
		t.Fatalf("empty name must fall back, got %q", got)
	}
}
