package main

import (
	"fmt"
	"log"
	"net/http"

	handler "bndy-backend/api"
	"bndy-backend/pkg/config"
	"bndy-backend/pkg/database"
)

// Local development server. Production runs api.Handler as a serverless
// function; this wraps the same router behind net/http.
func main() {
	cfg := config.GetCached()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Configuration error: %v", err)
	}

	db := database.GetDatabase(database.DatabaseConfig{
		PostgresDSN: cfg.PostgresDSN,
		Debug:       cfg.Debug,
	})
	defer db.Close()

	router := handler.NewRouter(cfg, db)

	addr := ":" + cfg.Port
	fmt.Printf("🚀 bndy backend listening on %s (%s)\n", addr, cfg.Environment)
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Fatalf("❌ Server exited: %v", err)
	}
}
