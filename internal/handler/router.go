package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	systemHandler *SystemHandler,
	authHandler *AuthHandler,
	documentHandler *DocumentHandler,
	authMiddleware func(http.Handler) http.Handler,
) http.Handler {
	router := mux.NewRouter()

	// Health and version (no auth required)
	router.HandleFunc("/health", systemHandler.Health).Methods(http.MethodGet)
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/version", systemHandler.Version).Methods(http.MethodGet)

	// Protected routes (require authentication)
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMiddleware)

	protected.HandleFunc("/auth/profile", authHandler.GetProfile).Methods(http.MethodGet)
	protected.HandleFunc("/auth/validate", authHandler.ValidateToken).Methods(http.MethodGet)

	protected.HandleFunc("/documents", documentHandler.GetDocuments).Methods(http.MethodGet)
	protected.HandleFunc("/documents", documentHandler.UploadDocument).Methods(http.MethodPost)
	protected.HandleFunc("/documents/{id}", documentHandler.GetDocument).Methods(http.MethodGet)
	protected.HandleFunc("/documents/{id}/pages/{page:[0-9]+}", documentHandler.GetPage).Methods(http.MethodGet)
	protected.HandleFunc("/documents/{id}/reprocess", documentHandler.ReprocessDocument).Methods(http.MethodPost)

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // SvelteKit dev server
			"http://localhost:4173", // SvelteKit preview
			"http://localhost:3000", // Alternative dev port
		},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-CSRF-Token",
		},
		ExposedHeaders: []string{
			"Link",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
