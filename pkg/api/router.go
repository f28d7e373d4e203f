package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter wires the handlers behind CORS
func NewRouter(handlers *Handlers, allowedOrigins []string) http.Handler {
	router := mux.NewRouter()

	// Health check
	router.HandleFunc("/health", handlers.Health).Methods("GET")

	// API routes
	apiRouter := router.PathPrefix("/api").Subrouter()

	// Verifiers
	apiRouter.HandleFunc("/verifiers", handlers.ListVerifiers).Methods("GET")
	apiRouter.HandleFunc("/verifiers/{name}/run", handlers.RunVerifier).Methods("POST")

	// Runs
	apiRouter.HandleFunc("/runs", handlers.ListRuns).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}", handlers.GetRun).Methods("GET")
	apiRouter.HandleFunc("/runs/{id}/cancel", handlers.CancelRun).Methods("POST")

	// WebSocket for real-time updates
	apiRouter.HandleFunc("/runs/{id}/stream", handlers.StreamRunUpdates).Methods("GET")

	// Screenshots
	apiRouter.HandleFunc("/runs/{id}/screenshots/{filename}", handlers.ServeScreenshot).Methods("GET")

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return c.Handler(router)
}
