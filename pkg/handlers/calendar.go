package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"bndy-backend/pkg/calendar"
	"bndy-backend/pkg/config"
	"bndy-backend/pkg/database"
	"bndy-backend/pkg/ical"
	"bndy-backend/pkg/middleware"
	"bndy-backend/pkg/models"
	"bndy-backend/pkg/utils"
)

// CalendarHandler serves aggregated calendar views, iCal export/import and
// subscription feeds.
type CalendarHandler struct {
	config     *config.Config
	db         database.DatabaseInterface
	feedTokens *utils.FeedTokenService
}

// NewCalendarHandler creates the calendar handler.
func NewCalendarHandler(cfg *config.Config, db database.DatabaseInterface) *CalendarHandler {
	return &CalendarHandler{
		config:     cfg,
		db:         db,
		feedTokens: utils.NewFeedTokenService(cfg.JWTSecret),
	}
}

// parseWindow reads the start/end query parameters. The default window runs
// from the first of the current month to three months out, which is what the
// SPA's month view asks for.
func parseWindow(r *http.Request) (time.Time, time.Time, error) {
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 3, 0)

	if v := utils.GetQueryParam(r, "start", ""); v != "" {
		t, err := models.ParseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start %q: expected YYYY-MM-DD", v)
		}
		start = t
	}
	if v := utils.GetQueryParam(r, "end", ""); v != "" {
		t, err := models.ParseDate(v)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end %q: expected YYYY-MM-DD", v)
		}
		end = t
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end precedes start")
	}
	return start, end, nil
}

// expandWindow turns stored events into concrete per-date instances inside
// the window. Recurring events contribute one instance per occurrence, with
// a derived ID so instances stay distinguishable (and export UIDs unique);
// a multi-day span carries over onto every instance.
func expandWindow(events []models.Event, start, end time.Time) ([]models.Event, error) {
	out := make([]models.Event, 0, len(events))
	for i := range events {
		occs, err := calendar.ExpandEvent(events[i], start, end)
		if err != nil {
			return nil, err
		}
		if events[i].Recurrence == nil {
			for range occs {
				out = append(out, events[i])
			}
			continue
		}
		spanDays := 0
		if events[i].EndDate != "" {
			base, err1 := models.ParseDate(events[i].Date)
			last, err2 := models.ParseDate(events[i].EndDate)
			if err1 == nil && err2 == nil && last.After(base) {
				spanDays = int(last.Sub(base) / (24 * time.Hour))
			}
		}
		for _, occ := range occs {
			inst := events[i]
			inst.ID = inst.ID + "-" + occ.Date
			inst.Date = occ.Date
			inst.EndDate = ""
			inst.Recurrence = nil
			if spanDays > 0 {
				if d, err := models.ParseDate(occ.Date); err == nil {
					inst.EndDate = models.FormatDate(d.AddDate(0, 0, spanDays))
				}
			}
			out = append(out, inst)
		}
	}
	return out, nil
}

func expandCrossArtist(events []models.CrossArtistEvent, start, end time.Time) ([]models.CrossArtistEvent, error) {
	out := make([]models.CrossArtistEvent, 0, len(events))
	for i := range events {
		instances, err := expandWindow([]models.Event{events[i].Event}, start, end)
		if err != nil {
			return nil, err
		}
		for _, inst := range instances {
			out = append(out, models.CrossArtistEvent{Event: inst, ArtistName: events[i].ArtistName})
		}
	}
	return out, nil
}

// GET /api/artists/{id}/calendar
func (h *CalendarHandler) ArtistCalendar(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	artistID := chi.URLParam(r, "id")

	if _, err := h.db.GetMembership(artistID, user.ID); err != nil {
		utils.WriteForbiddenResponse(w, "Not a member of artist")
		return
	}

	start, end, err := parseWindow(r)
	if err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	startStr, endStr := models.FormatDate(start), models.FormatDate(end)

	artistEvents, err := h.db.ListArtistEvents(artistID, startStr, endStr)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load events: "+err.Error())
		return
	}
	personalEvents, err := h.db.ListUserEvents(user.ID, startStr, endStr)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load personal events: "+err.Error())
		return
	}
	crossEvents, err := h.db.ListCrossArtistEvents(user.ID, artistID, startStr, endStr)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load cross-artist events: "+err.Error())
		return
	}

	artistInstances, err := expandWindow(artistEvents, start, end)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Expansion failed: "+err.Error())
		return
	}
	personalInstances, err := expandWindow(personalEvents, start, end)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Expansion failed: "+err.Error())
		return
	}
	crossInstances, err := expandCrossArtist(crossEvents, start, end)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Expansion failed: "+err.Error())
		return
	}

	entries := calendar.Aggregate(artistInstances, personalInstances, crossInstances)

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
		"window":  map[string]string{"start": startStr, "end": endStr},
	})
}

// GET /api/me/calendar
func (h *CalendarHandler) MyCalendar(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	start, end, err := parseWindow(r)
	if err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}
	startStr, endStr := models.FormatDate(start), models.FormatDate(end)

	personalEvents, err := h.db.ListUserEvents(user.ID, startStr, endStr)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load personal events: "+err.Error())
		return
	}
	// With no artist in view, every membership's events are cross-artist.
	crossEvents, err := h.db.ListCrossArtistEvents(user.ID, "", startStr, endStr)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load events: "+err.Error())
		return
	}

	personalInstances, err := expandWindow(personalEvents, start, end)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Expansion failed: "+err.Error())
		return
	}
	crossInstances, err := expandCrossArtist(crossEvents, start, end)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Expansion failed: "+err.Error())
		return
	}

	entries := calendar.Aggregate(nil, personalInstances, crossInstances)

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
		"window":  map[string]string{"start": startStr, "end": endStr},
	})
}

// GET /api/artists/{id}/calendar/export
func (h *CalendarHandler) ExportArtistCalendar(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	artistID := chi.URLParam(r, "id")

	if _, err := h.db.GetMembership(artistID, user.ID); err != nil {
		utils.WriteForbiddenResponse(w, "Not a member of artist")
		return
	}
	artist, err := h.db.GetArtist(artistID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Artist not found")
		return
	}

	start, end, err := parseWindow(r)
	if err != nil {
		utils.WriteBadRequestResponse(w, err.Error())
		return
	}

	opts := ical.ExportOptions{
		IncludePrivateEvents: utils.GetQueryParam(r, "include_private", "") == "true",
		MembershipID:         utils.GetQueryParam(r, "membership_id", ""),
		ArtistName:           artist.Name,
	}
	suffix := utils.GetQueryParam(r, "suffix", "")
	if suffix == "" && opts.MembershipID != "" {
		suffix = "personal"
	}

	h.writeCalendar(w, artistID, artist.Name, start, end, opts, suffix)
}

// POST /api/artists/{id}/calendar/feed-token
func (h *CalendarHandler) CreateFeedToken(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	artistID := chi.URLParam(r, "id")

	membership, err := h.db.GetMembership(artistID, user.ID)
	if err != nil {
		utils.WriteForbiddenResponse(w, "Not a member of artist")
		return
	}

	// Default tokens serve the whole artist calendar. scope=personal mints
	// a token narrowed to the requesting member's own events.
	membershipID := ""
	if utils.GetQueryParam(r, "scope", "") == "personal" {
		membershipID = membership.ID
	}

	// A year-long token: calendar apps poll the feed unattended, so the
	// credential must outlive a session token by a wide margin.
	token, err := h.feedTokens.GenerateFeedToken(artistID, membershipID, 365*24*time.Hour)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate feed token")
		return
	}

	feedURL := ""
	if h.config.BaseURL != "" {
		feedURL = h.config.BaseURL + "/api/calendar/feed?token=" + token
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"token": token,
		"url":   feedURL,
	})
}

// GET /api/calendar/feed?token=...
//
// Unauthenticated: calendar apps cannot attach Authorization headers to a
// subscription URL, so the token in the query string is the credential.
func (h *CalendarHandler) Feed(w http.ResponseWriter, r *http.Request) {
	token := utils.GetQueryParam(r, "token", "")
	if token == "" {
		utils.WriteUnauthorizedResponse(w, "Feed token required")
		return
	}
	claims, err := h.feedTokens.ValidateFeedToken(token)
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Invalid feed token")
		return
	}

	artist, err := h.db.GetArtist(claims.ArtistID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Artist not found")
		return
	}

	// Subscriptions get a rolling window: a month back, a year ahead.
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -30)
	end := start.AddDate(1, 0, 30)

	// The token's scope is the filter: a membership-narrowed token serves
	// only that member's own events.
	opts := ical.ExportOptions{
		IncludePrivateEvents: true,
		MembershipID:         claims.MembershipID,
		ArtistName:           artist.Name,
	}
	h.writeCalendar(w, claims.ArtistID, artist.Name, start, end, opts, "")
}

// writeCalendar loads, expands, filters and serializes an artist's events,
// then writes the .ics response.
func (h *CalendarHandler) writeCalendar(w http.ResponseWriter, artistID, artistName string, start, end time.Time, opts ical.ExportOptions, suffix string) {
	events, err := h.db.ListArtistEvents(artistID, models.FormatDate(start), models.FormatDate(end))
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load events: "+err.Error())
		return
	}

	instances, err := expandWindow(events, start, end)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Expansion failed: "+err.Error())
		return
	}

	// Serialize applies the export filters itself.
	body, err := ical.Serialize(instances, opts)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Export failed: "+err.Error())
		return
	}

	filename := ical.ExportFilename(artistName, time.Now().UTC(), suffix)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, body)
}

// POST /api/calendar/import
//
// Parses an uploaded .ics payload and returns the events it describes. The
// client reviews them and creates the ones it wants through the normal event
// endpoints; nothing is persisted here.
func (h *CalendarHandler) ImportCalendar(w http.ResponseWriter, r *http.Request) {
	if _, err := middleware.RequireUser(r.Context()); err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		utils.WriteBadRequestResponse(w, "Failed to read body")
		return
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		utils.WriteBadRequestResponse(w, "Empty calendar payload")
		return
	}

	parsed, err := ical.Parse(string(raw))
	if err != nil {
		var perr *ical.ParseError
		if errors.As(err, &perr) {
			utils.WriteBadRequestResponse(w, "Invalid iCalendar data: "+perr.Error())
			return
		}
		utils.WriteInternalServerErrorResponse(w, "Import failed: "+err.Error())
		return
	}

	type importedEvent struct {
		ical.ParsedEvent
		SuggestedRule *models.RecurrenceRule `json:"suggested_rule,omitempty"`
	}
	out := make([]importedEvent, 0, len(parsed))
	for _, pe := range parsed {
		ie := importedEvent{ParsedEvent: pe}
		if pe.RawRRule != "" {
			// Unsupported RRULEs import as one-off events on the start date.
			if rule, err := ical.RuleFromRRule(pe.RawRRule); err == nil {
				ie.SuggestedRule = rule
			}
		}
		out = append(out, ie)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"events": out,
		"count":  len(out),
	})
}
