package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"bndy-backend/pkg/config"
	"bndy-backend/pkg/middleware"
	"bndy-backend/pkg/models"
)

// stubStore backs handler tests with fixed data; unused operations fail
// loudly so a test exercising them gets a clear signal.
type stubStore struct {
	artist      *models.Artist
	memberships map[string]*models.Membership // keyed by user id
	events      []models.Event
}

var errStubUnsupported = errors.New("not supported by stub store")

func (s *stubStore) UpsertUser(user *models.User) error           { return nil }
func (s *stubStore) GetUserByID(id string) (*models.User, error)  { return nil, errStubUnsupported }
func (s *stubStore) CreateArtist(artist *models.Artist) error     { return errStubUnsupported }
func (s *stubStore) UpdateArtist(artist *models.Artist) error     { return errStubUnsupported }
func (s *stubStore) GetArtist(id string) (*models.Artist, error) {
	if s.artist != nil && s.artist.ID == id {
		return s.artist, nil
	}
	return nil, errors.New("artist not found")
}

func (s *stubStore) AddMembership(m *models.Membership) error { return errStubUnsupported }
func (s *stubStore) GetMembership(artistID, userID string) (*models.Membership, error) {
	if m, ok := s.memberships[userID]; ok && m.ArtistID == artistID {
		return m, nil
	}
	return nil, errors.New("membership not found")
}

func (s *stubStore) GetMembershipByID(id string) (*models.Membership, error) {
	for _, m := range s.memberships {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, errors.New("membership not found")
}

func (s *stubStore) ListArtistMembers(artistID string) ([]models.Membership, error) {
	return nil, errStubUnsupported
}

func (s *stubStore) ListUserMemberships(userID string) ([]models.Membership, error) {
	return nil, errStubUnsupported
}

func (s *stubStore) CreateInvitation(inv *models.ArtistInvitation) error { return errStubUnsupported }
func (s *stubStore) GetInvitationByToken(token string) (*models.ArtistInvitation, error) {
	return nil, errStubUnsupported
}
func (s *stubStore) UpdateInvitation(inv *models.ArtistInvitation) error { return errStubUnsupported }

func (s *stubStore) CreateEvent(ev *models.Event) error          { return errStubUnsupported }
func (s *stubStore) GetEvent(id string) (*models.Event, error)   { return nil, errStubUnsupported }
func (s *stubStore) UpdateEvent(ev *models.Event) error          { return errStubUnsupported }
func (s *stubStore) DeleteEvent(id string) error                 { return errStubUnsupported }
func (s *stubStore) ListArtistEvents(artistID, startDate, endDate string) ([]models.Event, error) {
	out := []models.Event{}
	for _, ev := range s.events {
		if ev.ArtistID == artistID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (s *stubStore) ListUserEvents(userID, startDate, endDate string) ([]models.Event, error) {
	return nil, errStubUnsupported
}

func (s *stubStore) ListCrossArtistEvents(userID, excludeArtistID, startDate, endDate string) ([]models.CrossArtistEvent, error) {
	return nil, errStubUnsupported
}

func (s *stubStore) HealthCheck() error { return nil }
func (s *stubStore) Close() error       { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Environment: "development",
		JWTSecret:   "test-secret",
		BaseURL:     "https://bndy.test",
	}
}

func feedStubStore() *stubStore {
	// Dates sit inside the feed's rolling window around now.
	soon := models.FormatDate(time.Now().UTC().AddDate(0, 0, 7))
	return &stubStore{
		artist: &models.Artist{ID: "artist-1", Name: "Night Drive"},
		memberships: map[string]*models.Membership{
			"alice": {ID: "mem-alice", ArtistID: "artist-1", UserID: "alice"},
			"bob":   {ID: "mem-bob", ArtistID: "artist-1", UserID: "bob"},
		},
		events: []models.Event{
			{ID: "band-gig", ArtistID: "artist-1", Type: models.EventTypeGig, Title: "Club night", Date: soon, IsPublic: true},
			{ID: "alices-block", ArtistID: "artist-1", Type: models.EventTypeUnavailable, Date: soon, MembershipID: "mem-alice"},
			{ID: "bobs-block", ArtistID: "artist-1", Type: models.EventTypeUnavailable, Date: soon, MembershipID: "mem-bob"},
		},
	}
}

func TestFeedBandTokenServesWholeCalendar(t *testing.T) {
	h := NewCalendarHandler(testConfig(), feedStubStore())

	token, err := h.feedTokens.GenerateFeedToken("artist-1", "", time.Hour)
	if err != nil {
		t.Fatalf("GenerateFeedToken: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Feed(rec, httptest.NewRequest("GET", "/api/calendar/feed?token="+token, nil))

	if rec.Code != 200 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	for _, uid := range []string{"band-gig@bndy.live", "alices-block@bndy.live", "bobs-block@bndy.live"} {
		if !strings.Contains(body, "UID:"+uid) {
			t.Fatalf("band feed missing %s:\n%s", uid, body)
		}
	}
}

func TestFeedPersonalTokenNarrowsToMember(t *testing.T) {
	h := NewCalendarHandler(testConfig(), feedStubStore())

	token, err := h.feedTokens.GenerateFeedToken("artist-1", "mem-alice", time.Hour)
	if err != nil {
		t.Fatalf("GenerateFeedToken: %v", err)
	}

	rec := httptest.NewRecorder()
	h.Feed(rec, httptest.NewRequest("GET", "/api/calendar/feed?token="+token, nil))

	if rec.Code != 200 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, "UID:alices-block@bndy.live") {
		t.Fatalf("narrowed feed must include the member's own events:\n%s", body)
	}
	if strings.Contains(body, "bobs-block") {
		t.Fatalf("narrowed feed leaked another member's events:\n%s", body)
	}
	if strings.Contains(body, "band-gig") {
		t.Fatalf("narrowed feed must exclude band-wide events:\n%s", body)
	}
}

func TestFeedRejectsBadToken(t *testing.T) {
	h := NewCalendarHandler(testConfig(), feedStubStore())

	rec := httptest.NewRecorder()
	h.Feed(rec, httptest.NewRequest("GET", "/api/calendar/feed?token=garbage", nil))
	if rec.Code != 401 {
		t.Fatalf("status %d, want 401", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Feed(rec, httptest.NewRequest("GET", "/api/calendar/feed", nil))
	if rec.Code != 401 {
		t.Fatalf("missing token: status %d, want 401", rec.Code)
	}
}

func newFeedTokenRequest(t *testing.T, scope string) (*CalendarHandler, *httptest.ResponseRecorder) {
	t.Helper()
	h := NewCalendarHandler(testConfig(), feedStubStore())

	target := "/api/artists/artist-1/calendar/feed-token"
	if scope != "" {
		target += "?scope=" + scope
	}
	req := httptest.NewRequest("POST", target, nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", "artist-1")
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = context.WithValue(ctx, middleware.UserContextKey, &models.User{ID: "alice", Email: "alice@example.com"})

	rec := httptest.NewRecorder()
	h.CreateFeedToken(rec, req.WithContext(ctx))
	return h, rec
}

func decodeFeedToken(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp struct {
		Data struct {
			Token string `json:"token"`
			URL   string `json:"url"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Data.Token == "" {
		t.Fatalf("no token in response")
	}
	return resp.Data.Token
}

func TestCreateFeedTokenDefaultsToBandScope(t *testing.T) {
	h, rec := newFeedTokenRequest(t, "")
	if rec.Code != 201 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	claims, err := h.feedTokens.ValidateFeedToken(decodeFeedToken(t, rec))
	if err != nil {
		t.Fatalf("ValidateFeedToken: %v", err)
	}
	if claims.ArtistID != "artist-1" {
		t.Fatalf("artist claim: %q", claims.ArtistID)
	}
	if claims.MembershipID != "" {
		t.Fatalf("band-scope token must not carry a membership, got %q", claims.MembershipID)
	}
}

func TestCreateFeedTokenPersonalScope(t *testing.T) {
	h, rec := newFeedTokenRequest(t, "personal")
	if rec.Code != 201 {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}

	claims, err := h.feedTokens.ValidateFeedToken(decodeFeedToken(t, rec))
	if err != nil {
		t.Fatalf("ValidateFeedToken: %v", err)
	}
	if claims.MembershipID != "mem-alice" {
		t.Fatalf("personal-scope token must carry the caller's membership, got %q", claims.MembershipID)
	}
}

func TestExpandWindowKeepsMultiDaySpan(t *testing.T) {
	events := []models.Event{
		{
			ID:      "retreat",
			Type:    models.EventTypeOther,
			Date:    "2025-08-04",
			EndDate: "2025-08-05",
			Recurrence: &models.RecurrenceRule{
				Frequency: models.FreqWeekly,
				Interval:  1,
			},
		},
	}
	start, _ := models.ParseDate("2025-08-01")
	end, _ := models.ParseDate("2025-08-14")

	instances, err := expandWindow(events, start, end)
	if err != nil {
		t.Fatalf("expandWindow: %v", err)
	}
	if len(instances) != 2 {
		t.Fatalf("got %d instances, want 2: %+v", len(instances), instances)
	}

	if instances[0].Date != "2025-08-04" || instances[0].EndDate != "2025-08-05" {
		t.Fatalf("first instance span: %s..%s", instances[0].Date, instances[0].EndDate)
	}
	if instances[1].Date != "2025-08-11" || instances[1].EndDate != "2025-08-12" {
		t.Fatalf("second instance span: %s..%s", instances[1].Date, instances[1].EndDate)
	}
	if instances[0].ID == instances[1].ID {
		t.Fatalf("instances must have distinct ids")
	}
	if instances[0].Recurrence != nil {
		t.Fatalf("instances must not carry the rule")
	}
}

func TestExpandWindowSingleDayRecurring(t *testing.T) {
	events := []models.Event{
		{
			ID:   "practice",
			Type: models.EventTypePractice,
			Date: "2025-08-04",
			Recurrence: &models.RecurrenceRule{
				Frequency: models.FreqWeekly,
				Interval:  1,
			},
		},
	}
	start, _ := models.ParseDate("2025-08-01")
	end, _ := models.ParseDate("2025-08-14")

	instances, err := expandWindow(events, start, end)
	if err != nil {
		t.Fatalf("expandWindow: %v", err)
	}
	for _, inst := range instances {
		if inst.EndDate != "" {
			t.Fatalf("single-day instance grew an end date: %+v", inst)
		}
	}
}
