package handler

import (
	"fmt"
	"net/http"
	"time"

	"bndy-backend/pkg/config"
	"bndy-backend/pkg/database"
	"bndy-backend/pkg/handlers"
	customMiddleware "bndy-backend/pkg/middleware"
	"bndy-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Handler is the serverless entry point. Every API endpoint runs through
// one Chi router behind this single function.
func Handler(w http.ResponseWriter, r *http.Request) {
	cfg := config.GetCached()

	if err := cfg.Validate(); err != nil {
		utils.WriteInternalServerErrorResponse(w, "Configuration error: "+err.Error())
		return
	}

	// Connections are pooled and reused across invocations.
	db := database.GetDatabase(database.DatabaseConfig{
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})

	router := NewRouter(cfg, db)
	router.ServeHTTP(w, r)
}

// NewRouter builds the full API router. The local server wraps the same
// router so both deployments serve identical routes.
func NewRouter(cfg *config.Config, db database.DatabaseInterface) *chi.Mux {
	router := chi.NewRouter()
	setupMiddleware(router, cfg)
	setupRoutes(router, cfg, db)
	return router
}

func setupMiddleware(router *chi.Mux, cfg *config.Config) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	// Normalize path and restore scheme/host before logging and routing
	router.Use(customMiddleware.Normalize())
	router.Use(customMiddleware.Logger(cfg))
	router.Use(customMiddleware.Recovery(cfg))

	router.Use(customMiddleware.CORS(cfg))

	// The function platform enforces a 30s limit; leave a buffer
	router.Use(middleware.Timeout(25 * time.Second))

	router.Use(middleware.Compress(5))
	router.Use(customMiddleware.MaxBodySize(2 << 20))

	if cfg.IsDevelopment() {
		router.Use(middleware.Heartbeat("/ping"))
	}
}

func setupRoutes(router *chi.Mux, cfg *config.Config, db database.DatabaseInterface) {
	healthHandler := handlers.NewHealthHandler(cfg, db)
	artistsHandler := handlers.NewArtistsHandler(cfg, db)
	eventsHandler := handlers.NewEventsHandler(cfg, db)
	calendarHandler := handlers.NewCalendarHandler(cfg, db)

	router.Get("/", healthHandler.HealthCheck)

	if cfg.IsDevelopment() {
		router.Get("/debug/db-pool", func(w http.ResponseWriter, r *http.Request) {
			utils.WriteSuccessResponse(w, database.GetConnectionStats())
		})
	}

	router.Route("/api", func(r chi.Router) {
		// Public: calendar app subscriptions authenticate by query token
		r.Get("/calendar/feed", calendarHandler.Feed)

		r.Route("/artists", func(r chi.Router) {
			// Public profile page; personalizes for logged-in members
			r.With(customMiddleware.OptionalAuthMiddleware(cfg)).
				Get("/{id}", artistsHandler.GetArtist)

			r.Group(func(r chi.Router) {
				r.Use(customMiddleware.AuthMiddleware(cfg))
				r.Use(customMiddleware.ContentTypeJSON)

				r.Post("/", artistsHandler.CreateArtist)
				r.Put("/{id}", artistsHandler.UpdateArtist)
				r.Get("/{id}/members", artistsHandler.ListMembers)
				r.Post("/{id}/invite", artistsHandler.InviteMember)

				r.Post("/{id}/events", eventsHandler.CreateArtistEvent)
				r.Get("/{id}/calendar", calendarHandler.ArtistCalendar)
				r.Get("/{id}/calendar/export", calendarHandler.ExportArtistCalendar)
				r.Post("/{id}/calendar/feed-token", calendarHandler.CreateFeedToken)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(customMiddleware.AuthMiddleware(cfg))
			r.Use(customMiddleware.ContentTypeJSON)

			r.Route("/events", func(r chi.Router) {
				r.Get("/{id}", eventsHandler.GetEvent)
				r.Put("/{id}", eventsHandler.UpdateEvent)
				r.Delete("/{id}", eventsHandler.DeleteEvent)
			})

			r.Route("/me", func(r chi.Router) {
				r.Get("/artists", artistsHandler.ListMyArtists)
				r.Get("/events", eventsHandler.ListMyEvents)
				r.Post("/events", eventsHandler.CreatePersonalEvent)
				r.Get("/calendar", calendarHandler.MyCalendar)
			})

			r.Post("/invitations/accept", artistsHandler.AcceptInvitation)
			r.Post("/calendar/import", calendarHandler.ImportCalendar)
		})
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteNotFoundResponse(w, fmt.Sprintf("Route not found: %s %s", r.Method, r.URL.Path))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.WriteErrorResponseWithCode(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED",
			fmt.Sprintf("Method %s not allowed for %s", r.Method, r.URL.Path), "")
	})
}
