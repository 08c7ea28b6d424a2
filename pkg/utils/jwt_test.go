package utils

import (
	"testing"
	"time"
)

func TestFeedTokenRoundTrip(t *testing.T) {
	svc := NewFeedTokenService("test-secret")

	token, err := svc.GenerateFeedToken("artist-1", "mem-1", time.Hour)
	if err != nil {
		t.Fatalf("GenerateFeedToken: %v", err)
	}

	claims, err := svc.ValidateFeedToken(token)
	if err != nil {
		t.Fatalf("ValidateFeedToken: %v", err)
	}
	if claims.ArtistID != "artist-1" || claims.MembershipID != "mem-1" {
		t.Fatalf("claims: %+v", claims)
	}
	if claims.Type != "calendar_feed" {
		t.Fatalf("type: %q", claims.Type)
	}
}

func TestFeedTokenWrongSecret(t *testing.T) {
	token, err := NewFeedTokenService("secret-a").GenerateFeedToken("artist-1", "", time.Hour)
	if err != nil {
		t.Fatalf("GenerateFeedToken: %v", err)
	}
	if _, err := NewFeedTokenService("secret-b").ValidateFeedToken(token); err == nil {
		t.Fatalf("token signed with another secret must fail validation")
	}
}

func TestFeedTokenExpired(t *testing.T) {
	svc := NewFeedTokenService("test-secret")
	token, err := svc.GenerateFeedToken("artist-1", "", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateFeedToken: %v", err)
	}
	if _, err := svc.ValidateFeedToken(token); err == nil {
		t.Fatalf("expired token must fail validation")
	}
}

func TestGenerateURLToken(t *testing.T) {
	a, err := GenerateURLToken(24)
	if err != nil {
		t.Fatalf("GenerateURLToken: %v", err)
	}
	b, err := GenerateURLToken(24)
	if err != nil {
		t.Fatalf("GenerateURLToken: %v", err)
	}
	if a == b {
		t.Fatalf("tokens must be unique")
	}
	for _, r := range a {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			continue
		}
		t.Fatalf("token %q contains non URL-safe character %q", a, r)
	}
}
