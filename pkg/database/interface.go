package database

import (
	"fmt"

	"bndy-backend/pkg/models"
)

// DatabaseInterface is the storage surface the handlers depend on.
type DatabaseInterface interface {
	// Users (rows mirror the identity provider's subjects)
	UpsertUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)

	// Artists
	CreateArtist(artist *models.Artist) error
	GetArtist(id string) (*models.Artist, error)
	UpdateArtist(artist *models.Artist) error

	// Memberships
	AddMembership(m *models.Membership) error
	GetMembership(artistID, userID string) (*models.Membership, error)
	GetMembershipByID(id string) (*models.Membership, error)
	ListArtistMembers(artistID string) ([]models.Membership, error)
	ListUserMemberships(userID string) ([]models.Membership, error)

	// Invitations
	CreateInvitation(inv *models.ArtistInvitation) error
	GetInvitationByToken(token string) (*models.ArtistInvitation, error)
	UpdateInvitation(inv *models.ArtistInvitation) error

	// Events. Date-range listings include recurring events whose anchor
	// precedes the window, since they may recur into it; expansion is the
	// calendar package's job.
	CreateEvent(ev *models.Event) error
	GetEvent(id string) (*models.Event, error)
	UpdateEvent(ev *models.Event) error
	DeleteEvent(id string) error
	ListArtistEvents(artistID, startDate, endDate string) ([]models.Event, error)
	ListUserEvents(userID, startDate, endDate string) ([]models.Event, error)
	// ListCrossArtistEvents returns events from the user's other artists
	// (excluding excludeArtistID), tagged with each artist's display name.
	ListCrossArtistEvents(userID, excludeArtistID, startDate, endDate string) ([]models.CrossArtistEvent, error)

	HealthCheck() error
	Close() error
}

// DatabaseConfig selects and configures the storage backend.
type DatabaseConfig struct {
	PostgresDSN string
	Debug       bool
}

// NewDatabase creates the configured storage backend.
func NewDatabase(config DatabaseConfig) DatabaseInterface {
	if config.PostgresDSN == "" {
		panic("No valid database configuration found. Please configure POSTGRES_DSN")
	}
	fmt.Printf("🗄️  Using PostgreSQL database\n")
	return NewPostgresDatabase(config.PostgresDSN)
}
