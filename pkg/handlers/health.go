package handlers

import (
	"net/http"

	"bndy-backend/pkg/config"
	"bndy-backend/pkg/database"
	"bndy-backend/pkg/utils"
)

// HealthHandler serves the service health endpoint.
type HealthHandler struct {
	config *config.Config
	db     database.DatabaseInterface
}

// NewHealthHandler creates the health handler.
func NewHealthHandler(cfg *config.Config, db database.DatabaseInterface) *HealthHandler {
	return &HealthHandler{config: cfg, db: db}
}

// HealthCheck reports service and database status.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	dbStatus := "ok"
	if err := h.db.HealthCheck(); err != nil {
		dbStatus = "error: " + err.Error()
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"service":     "bndy-backend",
		"environment": h.config.Environment,
		"database":    dbStatus,
	})
}
