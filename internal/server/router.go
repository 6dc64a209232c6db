package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(handler *Handler) chi.Router {
	r := chi.NewRouter()

	origins := []string{"*"}
	if handler.cfg != nil && len(handler.cfg.App.CORSAllowedOrigins) > 0 {
		origins = handler.cfg.App.CORSAllowedOrigins
	}

	r.Use(requestID)
	r.Use(instrument(handler.metrics, handler.logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{PartialHeader, "Content-Disposition", middleware.RequestIDHeader},
		MaxAge:         300,
	}))

	// Register routes
	handler.RegisterRoutes(r)

	return r
}
