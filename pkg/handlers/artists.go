package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"bndy-backend/pkg/config"
	"bndy-backend/pkg/database"
	"bndy-backend/pkg/middleware"
	"bndy-backend/pkg/models"
	"bndy-backend/pkg/utils"
)

// ArtistsHandler manages artist profiles, memberships and invitations.
type ArtistsHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewArtistsHandler creates the artists handler.
func NewArtistsHandler(cfg *config.Config, db database.DatabaseInterface) *ArtistsHandler {
	return &ArtistsHandler{config: cfg, db: db}
}

// ==== helpers: membership/role checks ====

func (h *ArtistsHandler) getUserRoleInArtist(userID, artistID string) (models.MemberRole, bool) {
	// owner fast-path
	if artist, err := h.db.GetArtist(artistID); err == nil {
		if artist.OwnerID == userID {
			return models.RoleOwner, true
		}
	}
	m, err := h.db.GetMembership(artistID, userID)
	if err != nil {
		return "", false
	}
	return m.Role, true
}

func (h *ArtistsHandler) requireArtistMember(w http.ResponseWriter, userID, artistID string) (models.MemberRole, bool) {
	role, ok := h.getUserRoleInArtist(userID, artistID)
	if !ok {
		utils.WriteForbiddenResponse(w, "Not a member of artist")
		return "", false
	}
	return role, true
}

func (h *ArtistsHandler) requireAdmin(w http.ResponseWriter, userID, artistID string) bool {
	role, ok := h.getUserRoleInArtist(userID, artistID)
	if !ok || !role.AtLeast(models.RoleAdmin) {
		utils.WriteForbiddenResponse(w, "Admin privileges required")
		return false
	}
	return true
}

// POST /api/artists
func (h *ArtistsHandler) CreateArtist(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Name         string   `json:"name"`
		Location     string   `json:"location"`
		Bio          string   `json:"bio"`
		Avatar       string   `json:"avatar"`
		Color        string   `json:"color"`
		DisplayName  string   `json:"display_name"`
		InviteEmails []string `json:"invite_emails"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		utils.WriteBadRequestResponse(w, "Name required")
		return
	}

	// Make sure the provider subject has a local row before FKs point at it
	if err := h.db.UpsertUser(user); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to record user: "+err.Error())
		return
	}

	color := strings.TrimSpace(req.Color)
	if color == "" {
		color = "#f97316"
	}
	artist := &models.Artist{
		Name:     req.Name,
		OwnerID:  user.ID,
		Location: req.Location,
		Bio:      req.Bio,
		Avatar:   req.Avatar,
		Color:    color,
	}
	if err := h.db.CreateArtist(artist); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Create artist failed: "+err.Error())
		return
	}

	// The creator becomes the owner member
	displayName := strings.TrimSpace(req.DisplayName)
	if displayName == "" {
		displayName = user.Name
	}
	membership := &models.Membership{
		ArtistID:    artist.ID,
		UserID:      user.ID,
		Role:        models.RoleOwner,
		DisplayName: displayName,
		Status:      models.MembershipActive,
	}
	if err := h.db.AddMembership(membership); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Create membership failed: "+err.Error())
		return
	}

	for _, email := range req.InviteEmails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}
		tok, err := utils.GenerateURLToken(24)
		if err != nil {
			fmt.Printf("[warn] failed to generate token for %s: %v\n", email, err)
			continue
		}
		inv := &models.ArtistInvitation{
			ArtistID:  artist.ID,
			Email:     email,
			InviterID: user.ID,
			Token:     tok,
			Status:    models.InvitationPending,
			ExpiresAt: time.Now().Add(14 * 24 * time.Hour),
		}
		if err := h.db.CreateInvitation(inv); err != nil {
			fmt.Printf("[warn] failed to create invitation for %s: %v\n", email, err)
		}
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"artist":     artist,
		"membership": membership,
	})
}

// GET /api/artists/{id}
//
// Public: artist profiles are the site's shareable pages. Authenticated
// members additionally get their own membership in the payload.
func (h *ArtistsHandler) GetArtist(w http.ResponseWriter, r *http.Request) {
	artistID := chi.URLParam(r, "id")
	if strings.TrimSpace(artistID) == "" {
		utils.WriteBadRequestResponse(w, "artist id required")
		return
	}

	artist, err := h.db.GetArtist(artistID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Artist not found")
		return
	}

	resp := map[string]interface{}{"artist": artist}
	if user, ok := middleware.GetUserFromContext(r.Context()); ok {
		if m, err := h.db.GetMembership(artistID, user.ID); err == nil {
			resp["membership"] = m
		}
	}

	utils.WriteSuccessResponse(w, resp)
}

// PUT /api/artists/{id}
func (h *ArtistsHandler) UpdateArtist(w http.ResponseWriter, r *http.Request) {
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
	if !h.requireAdmin(w, user.ID, artistID) {
		return
	}

	artist, err := h.db.GetArtist(artistID)
	if err != nil {
		utils.WriteNotFoundResponse(w, "Artist not found")
		return
	}

	var req struct {
		Name     *string `json:"name"`
		Location *string `json:"location"`
		Bio      *string `json:"bio"`
		Avatar   *string `json:"avatar"`
		Color    *string `json:"color"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteBadRequestResponse(w, "Invalid body")
		return
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			utils.WriteBadRequestResponse(w, "Name cannot be empty")
			return
		}
		artist.Name = *req.Name
	}
	if req.Location != nil {
		artist.Location = *req.Location
	}
	if req.Bio != nil {
		artist.Bio = *req.Bio
	}
	if req.Avatar != nil {
		artist.Avatar = *req.Avatar
	}
	if req.Color != nil {
		artist.Color = *req.Color
	}

	if err := h.db.UpdateArtist(artist); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Update artist failed: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"artist": artist})
}

// GET /api/artists/{id}/members
func (h *ArtistsHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	artistID := chi.URLParam(r, "id")
	if _, ok := h.requireArtistMember(w, user.ID, artistID); !ok {
		return
	}

	members, err := h.db.ListArtistMembers(artistID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list members: "+err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"members": members,
		"count":   len(members),
	})
}

// GET /api/me/artists
func (h *ArtistsHandler) ListMyArtists(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	memberships, err := h.db.ListUserMemberships(user.ID)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to list memberships: "+err.Error())
		return
	}

	artists := make([]models.Artist, 0, len(memberships))
	for _, m := range memberships {
		if artist, err := h.db.GetArtist(m.ArtistID); err == nil {
			artists = append(artists, *artist)
		}
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"artists":     artists,
		"memberships": memberships,
	})
}

// POST /api/artists/{id}/invite
func (h *ArtistsHandler) InviteMember(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}
	artistID := chi.URLParam(r, "id")
	if !h.requireAdmin(w, user.ID, artistID) {
		return
	}

	var req struct {
		Email string `json:"email"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil || strings.TrimSpace(req.Email) == "" {
		utils.WriteBadRequestResponse(w, "Email required")
		return
	}

	tok, err := utils.GenerateURLToken(24)
	if err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to generate invite token")
		return
	}
	inv := &models.ArtistInvitation{
		ArtistID:  artistID,
		Email:     strings.TrimSpace(req.Email),
		InviterID: user.ID,
		Token:     tok,
		Status:    models.InvitationPending,
		ExpiresAt: time.Now().Add(14 * 24 * time.Hour),
	}
	if err := h.db.CreateInvitation(inv); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Create invitation failed: "+err.Error())
		return
	}

	inviteURL := ""
	if h.config.BaseURL != "" {
		inviteURL = h.config.BaseURL + "/join/" + inv.Token
	}

	utils.WriteCreatedResponse(w, map[string]interface{}{
		"invitation": inv,
		"invite_url": inviteURL,
	})
}

// POST /api/invitations/accept
func (h *ArtistsHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.RequireUser(r.Context())
	if err != nil {
		utils.WriteUnauthorizedResponse(w, "Authentication required")
		return
	}

	var req struct {
		Token       string `json:"token"`
		DisplayName string `json:"display_name"`
	}
	if err := utils.ParseJSONBody(r, &req); err != nil || strings.TrimSpace(req.Token) == "" {
		utils.WriteBadRequestResponse(w, "Token required")
		return
	}

	inv, err := h.db.GetInvitationByToken(strings.TrimSpace(req.Token))
	if err != nil {
		utils.WriteNotFoundResponse(w, "Invitation not found")
		return
	}
	if inv.Status != models.InvitationPending {
		utils.WriteConflictResponse(w, "Invitation is no longer pending")
		return
	}
	if time.Now().After(inv.ExpiresAt) {
		inv.Status = models.InvitationExpired
		_ = h.db.UpdateInvitation(inv)
		utils.WriteConflictResponse(w, "Invitation has expired")
		return
	}

	if err := h.db.UpsertUser(user); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Failed to record user: "+err.Error())
		return
	}

	// Joining twice is a conflict, not a second membership
	if _, err := h.db.GetMembership(inv.ArtistID, user.ID); err == nil {
		utils.WriteConflictResponse(w, "Already a member of this artist")
		return
	}

	membership := &models.Membership{
		ArtistID:    inv.ArtistID,
		UserID:      user.ID,
		Role:        models.RoleMember,
		DisplayName: strings.TrimSpace(req.DisplayName),
		Status:      models.MembershipActive,
	}
	if err := h.db.AddMembership(membership); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Create membership failed: "+err.Error())
		return
	}

	inv.Status = models.InvitationAccepted
	if err := h.db.UpdateInvitation(inv); err != nil {
		fmt.Printf("[warn] failed to mark invitation %s accepted: %v\n", inv.ID, err)
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{"membership": membership})
}
