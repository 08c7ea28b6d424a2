package calendar

import "bndy-backend/pkg/models"

// Permission predicates over (event, current user, current membership).
// These are pure functions: handlers enforce them before mutating, and the
// SPA uses the same answers to show or hide edit controls.

// CanEditEvent reports whether the current user may modify the event.
//
// Unavailability entries belong to one person and only that person may
// touch them. Artist-scoped events are editable by any member of the same
// artist, whatever their role: the shared schedule is shared. Events with
// no artist association are the acting user's own data.
func CanEditEvent(ev models.Event, userID string, membership *models.Membership) bool {
	if ev.Type == models.EventTypeUnavailable {
		if ev.MembershipID != "" {
			return membership != nil && membership.ID == ev.MembershipID
		}
		if ev.UserID != "" {
			return userID != "" && userID == ev.UserID
		}
		return false
	}
	if ev.ArtistID != "" {
		return membership != nil && membership.ArtistID == ev.ArtistID
	}
	return true
}

// CanDeleteEvent currently follows the same policy as CanEditEvent. It is
// kept as a separate named check so a stricter deletion policy can diverge
// without touching call sites.
func CanDeleteEvent(ev models.Event, userID string, membership *models.Membership) bool {
	return CanEditEvent(ev, userID, membership)
}

// IsEventOwner is the narrow identity check used for display copy ("only X
// can edit this"). It is not used for enforcement.
func IsEventOwner(ev models.Event, userID string, membership *models.Membership) bool {
	if ev.MembershipID != "" {
		return membership != nil && membership.ID == ev.MembershipID
	}
	if ev.UserID != "" {
		return userID != "" && userID == ev.UserID
	}
	return false
}

// CanCreateEvent requires an authenticated user, and a membership in the
// target artist when creating in an artist context.
func CanCreateEvent(userID, artistID string, membership *models.Membership) bool {
	if userID == "" {
		return false
	}
	if artistID == "" {
		return true
	}
	return membership != nil && membership.ArtistID == artistID
}
