package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"bndy-backend/pkg/calendar"
	"bndy-backend/pkg/config"
	"bndy-backend/pkg/database"
	"bndy-backend/pkg/middleware"
	"bndy-backend/pkg/models"
	"bndy-backend/pkg/utils"
)

// EventsHandler manages event CRUD for artist calendars and personal
// availability.
type EventsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewEventsHandler creates the events handler.
func NewEventsHandler(cfg *config.Config, db database.DatabaseInterface) *EventsHandler {
	return &EventsHandler{config: cfg, db: db}
}

// resolveMembership finds the membership relevant to a permission check on
// a stored event. Artist-scoped events use the caller's membership in that
// artist; personal unavailability may reference a membership directly.
func (h *EventsHandler) resolveMembership(ev *models.Event, userID string) *models.Membership {
	if ev.ArtistID != "" {
		if m, err := h.db.GetMembership(ev.ArtistID, userID); err == nil {
			return m
		}
		return nil
	}
	if ev.MembershipID != "" {
		if m, err := h.db.GetMembershipByID(ev.MembershipID); err == nil && m.UserID == userID {
			return m
		}
	}
	return nil
}

// POST /api/artists/{id}/events
func (h *EventsHandler) CreateArtistEvent(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	artistID := chi.URLParam(r, "id")
	if strings.TrimSpace(artistID) == "" {
		utils.WriteBadRequestResponse(w, "artist id required")
		return
	}

	membership, err := h.db.GetMembership(artistID, user.ID)
	if err != nil {
		membership = nil
	}
	if !calendar.CanCreateEvent(user.ID, artistID, membership) {
		utils.WriteForbiddenResponse(w, "Not a member of artist")
		return
	}

	var ev models.Event
	if err := utils.ParseJSONBody(r, &ev); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	ev.ID = ""
	ev.ArtistID = artistID

	// An unavailability created through an artist defaults to the caller's
	// membership so the block is attributable to one member.
	if ev.Type == models.EventTypeUnavailable && ev.MembershipID == "" && ev.UserID == "" {
		ev.MembershipID = membership.ID
	}

	if err := ev.Validate(); err != nil {
		utils.WriteValidationErrorResponse(w, "Invalid event", err.Error())
		return
	}
	if ev.Recurrence != nil {
		ev.Recurrence.Normalize()
		if err := calendar.ValidateRule(*ev.Recurrence); err != nil {
			utils.WriteValidationErrorResponse(w, "Invalid recurrence rule", err.Error())
			return
		}
	}

	if err := h.db.CreateEvent(&ev); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Create event failed: "+err.Error())
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"event": ev})
}

// POST /api/me/events
func (h *EventsHandler) CreatePersonalEvent(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var ev models.Event
	if err := utils.ParseJSONBody(r, &ev); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	ev.ID = ""
	ev.ArtistID = ""

	if ev.Type == models.EventTypeUnavailable && ev.MembershipID == "" && ev.UserID == "" {
		ev.UserID = user.ID
	}

	if err := ev.Validate(); err != nil {
		utils.WriteValidationErrorResponse(w, "Invalid event", err.Error())
		return
	}
	if ev.Recurrence != nil {
		ev.Recurrence.Normalize()
		if err := calendar.ValidateRule(*ev.Recurrence); err != nil {
			utils.WriteValidationErrorResponse(w, "Invalid recurrence rule", err.Error())
			return
		}
	}

	// The user row must exist before the event references it
	if ev.UserID != "" {
		if err := h.db.UpsertUser(user); err != nil {
			utils.WriteInternalServerErrorResponse(w, "Failed to record user: "+err.Error())
			return
		}
	}

	if err := h.db.CreateEvent(&ev); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Create event failed: "+err.Error())
		return
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{"event": ev})
}

// GET /api/me/events
//
// Returns the stored personal events inside the window, recurrence rules
// intact. The aggregated, expanded view lives at /api/me/calendar.
func (h *EventsHandler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
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

	events, err := h.db.ListUserEvents(user.ID, startStr, endStr)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to load events: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"events": events,
		"count":  len(events),
		"window": map[string]string{"start": startStr, "end": endStr},
	})
}

// GET /api/events/{id}
func (h *EventsHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	eventID := chi.URLParam(r, "id")

	ev, err := h.db.GetEvent(eventID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Event not found")
		return
	}

	if ev.ArtistID != "" && !ev.IsPublic {
		if membership := h.resolveMembership(ev, user.ID); membership == nil {
			utils.WriteForbiddenResponse(w, "Not a member of artist")
			return
		}
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"event": ev})
}

// PUT /api/events/{id}
func (h *EventsHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	eventID := chi.URLParam(r, "id")

	stored, err := h.db.GetEvent(eventID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Event not found")
		return
	}

	membership := h.resolveMembership(stored, user.ID)
	if !calendar.CanEditEvent(*stored, user.ID, membership) {
		utils.WriteForbiddenResponse(w, "Not allowed to edit this event")
		return
	}

	var ev models.Event
	if err := utils.ParseJSONBody(r, &ev); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	// Identity and scope are immutable on update
	ev.ID = stored.ID
	ev.ArtistID = stored.ArtistID
	if ev.Type == models.EventTypeUnavailable && ev.MembershipID == "" && ev.UserID == "" {
		ev.MembershipID = stored.MembershipID
		ev.UserID = stored.UserID
	}

	if err := ev.Validate(); err != nil {
		utils.WriteValidationErrorResponse(w, "Invalid event", err.Error())
		return
	}
	if ev.Recurrence != nil {
		ev.Recurrence.Normalize()
		if err := calendar.ValidateRule(*ev.Recurrence); err != nil {
			utils.WriteValidationErrorResponse(w, "Invalid recurrence rule", err.Error())
			return
		}
	}

	if err := h.db.UpdateEvent(&ev); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Update event failed: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"event": ev})
}

// DELETE /api/events/{id}
func (h *EventsHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	eventID := chi.URLParam(r, "id")

	stored, err := h.db.GetEvent(eventID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Event not found")
		return
	}

	membership := h.resolveMembership(stored, user.ID)
	if !calendar.CanDeleteEvent(*stored, user.ID, membership) {
		utils.WriteForbiddenResponse(w, "Not allowed to delete this event")
		return
	}

	if err := h.db.DeleteEvent(eventID); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Delete event failed: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"deleted": eventID})
}
