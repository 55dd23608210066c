// Package http provides the HTTP delivery layer for the URL shortener service.
// This package contains the admin and redirect handlers, the token check guarding
// the admin API, and the types used for validating input and formatting responses.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/go-playground/validator/v10"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options configures the routes mounted by NewRouter.
type Options struct {
	// AdminToken guards every route under APIPrefix.
	AdminToken string
	// APIPrefix is the mount point of the admin API, e.g. "/api".
	APIPrefix string
	// RedirectPrefix is the mount point of the public redirects. Empty serves codes from the root.
	RedirectPrefix string
	// Metrics is served on /metrics when set.
	Metrics http.Handler
	// Swagger is the OpenAPI document served on /docs/swagger.yml when set.
	Swagger []byte
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the URL shortener API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*"},
		AllowedMethods:   []string{"POST", "GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           84600,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/ping", handlePing)

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	if opts.Swagger != nil {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/docs/swagger.yml"),
		))

		r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/yaml")
			w.Write(opts.Swagger)
		})
	}

	h := newURLHandler(urlUseCase, validator.New())

	r.Route(opts.APIPrefix, func(r chi.Router) {
		r.Use(requireAdminToken(opts.AdminToken))

		r.Route("/urls", func(r chi.Router) {
			r.Get("/", h.listURLs)
			r.Post("/", h.shortenURL)

			r.Route("/{shortCode}", func(r chi.Router) {
				r.Get("/", h.getURL)
				r.Delete("/", h.deleteURL)
			})
		})
	})

	r.Get(opts.RedirectPrefix+"/{shortCode}", h.redirect)

	return r
}
