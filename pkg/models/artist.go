package models

import "time"

// Artist represents a band or solo artist profile.
type Artist struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	OwnerID  string `json:"owner_id" db:"owner_id"`
	Location string `json:"location,omitempty" db:"location"`
	Bio      string `json:"bio,omitempty" db:"bio"`
	Avatar   string `json:"avatar,omitempty" db:"avatar"`
	// Color is the accent colour used by the SPA for this artist's events.
	Color     string    `json:"color,omitempty" db:"color"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
