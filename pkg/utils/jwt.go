package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// FeedTokenService signs and validates calendar feed tokens. Calendar
// clients subscribe to an artist's iCal feed via a plain GET URL and cannot
// send Authorization headers, so the feed URL carries a signed token
// scoping it to one artist (and optionally one membership).
type FeedTokenService struct {
	secretKey []byte
}

// NewFeedTokenService creates a feed token service.
func NewFeedTokenService(secretKey string) *FeedTokenService {
	return &FeedTokenService{
		secretKey: []byte(secretKey),
	}
}

// FeedClaims are the claims embedded in a calendar feed token.
type FeedClaims struct {
	ArtistID     string `json:"artist_id"`
	MembershipID string `json:"membership_id,omitempty"`
	Type         string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateFeedToken mints a feed token for one artist's calendar. A
// non-empty membershipID narrows the feed to that member's own events.
func (s *FeedTokenService) GenerateFeedToken(artistID, membershipID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &FeedClaims{
		ArtistID:     artistID,
		MembershipID: membershipID,
		Type:         "calendar_feed",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign feed token: %w", err)
	}
	return signed, nil
}

// ValidateFeedToken parses and verifies a feed token.
func (s *FeedTokenService) ValidateFeedToken(tokenString string) (*FeedClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &FeedClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid feed token")
	}

	claims, ok := token.Claims.(*FeedClaims)
	if !ok {
		return nil, fmt.Errorf("invalid feed token claims")
	}
	if claims.Type != "calendar_feed" {
		return nil, fmt.Errorf("invalid token type: expected calendar_feed, got %s", claims.Type)
	}
	return claims, nil
}
