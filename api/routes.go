package api

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"screenscout/handlers"
)

// corsMiddleware handles CORS for API routes.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Register mounts API endpoints onto the provided router.
func Register(r *mux.Router, titlesHandler *handlers.TitlesHandler) {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(corsMiddleware)
	api.Use(RequestIDMiddleware())
	api.Use(AccessLogMiddleware())

	api.HandleFunc("/search", titlesHandler.Search).Methods(http.MethodGet, http.MethodOptions)
	api.HandleFunc("/title", titlesHandler.TitleDetails).Methods(http.MethodGet, http.MethodOptions)

	// 10 requests per minute per IP. Every uncached generation costs a paid
	// model completion, so this endpoint is throttled ahead of the handler.
	overviewLimiter := NewIPRateLimiter(rate.Every(6*time.Second), 10)
	api.HandleFunc("/ai-overview", RateLimitHandlerFunc(overviewLimiter, titlesHandler.AIOverview)).Methods(http.MethodPost, http.MethodOptions)
}
