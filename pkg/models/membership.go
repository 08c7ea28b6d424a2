package models

import "time"

// MemberRole is a member's privilege level within an artist, ordered
// owner > admin > member.
type MemberRole string

const (
	RoleOwner  MemberRole = "owner"
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
)

func (r MemberRole) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

// AtLeast reports whether r carries at least the privileges of other.
func (r MemberRole) AtLeast(other MemberRole) bool {
	return r.rank() >= other.rank()
}

// MembershipStatus tracks the lifecycle of a membership.
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipInvited MembershipStatus = "invited"
)

// Membership relates a user to an artist with a role and a display identity.
type Membership struct {
	ID       string     `json:"id" db:"id"`
	ArtistID string     `json:"artist_id" db:"artist_id"`
	UserID   string     `json:"user_id" db:"user_id"`
	Role     MemberRole `json:"role" db:"role"`
	// Display identity shown on calendars and member lists.
	DisplayName string           `json:"display_name,omitempty" db:"display_name"`
	Icon        string           `json:"icon,omitempty" db:"icon"`
	Color       string           `json:"color,omitempty" db:"color"`
	Status      MembershipStatus `json:"status" db:"status"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
}

// InvitationStatus tracks the lifecycle of an artist invitation.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// ArtistInvitation invites an email address to join an artist.
type ArtistInvitation struct {
	ID        string           `json:"id" db:"id"`
	ArtistID  string           `json:"artist_id" db:"artist_id"`
	Email     string           `json:"email" db:"email"`
	InviterID string           `json:"inviter_id" db:"inviter_id"`
	Token     string           `json:"token" db:"token"`
	Status    InvitationStatus `json:"status" db:"status"`
	ExpiresAt time.Time        `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}
