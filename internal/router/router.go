package router

import (
	"net/http"

	"freshmart-api/internal/handler"
	"freshmart-api/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler           *handler.Handler
	IngredientHandler *handler.IngredientHandler
	ProductHandler    *handler.ProductHandler
	CatalogHandler    *handler.CatalogHandler
	AdminHandler      *handler.AdminHandler

	// AdminAuth guards /api/v1/admin. Nil leaves it open.
	AdminAuth func(http.Handler) http.Handler

	// Metrics is served at MetricsPath when both are set.
	Metrics     http.Handler
	MetricsPath string

	Logger   zerolog.Logger
	Observer middleware.RequestObserver
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.NewRecovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.NewLogging(cfg.Logger, cfg.Observer))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key", middleware.UserIDHeader},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.Identity)

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	if cfg.Metrics != nil && cfg.MetricsPath != "" {
		r.Method(http.MethodGet, cfg.MetricsPath, cfg.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Health check endpoints
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}

		if h := cfg.IngredientHandler; h != nil {
			r.Route("/ingredients", func(r chi.Router) {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		}

		if h := cfg.ProductHandler; h != nil {
			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
				r.Get("/{id}/price", h.Price)
				r.Get("/{id}/visitors", h.Visitors)
			})
		}

		if h := cfg.CatalogHandler; h != nil {
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.ListCategories)
				r.Post("/", h.CreateCategory)
				r.Delete("/{id}", h.DeleteCategory)
			})
			r.Post("/price", h.Quote)
			r.Get("/users/{user_id}/products", h.UserProducts)
			r.Put("/users/{user_id}/products", h.RefreshUserProducts)
		}

		// Admin endpoints
		if h := cfg.AdminHandler; h != nil {
			r.Route("/admin", func(r chi.Router) {
				if cfg.AdminAuth != nil {
					r.Use(cfg.AdminAuth)
				}
				r.Get("/jobs", h.ListJobs)
				r.Get("/stats", h.GetStats)
				r.Post("/sweep", h.Sweep)
			})
		}
	})

	return r
}
