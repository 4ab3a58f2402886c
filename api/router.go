package api

import (
	"net/http"

	"github.com/devink/campusconnect/internal/directory"
	"github.com/devink/campusconnect/internal/feed"
	"github.com/devink/campusconnect/internal/identity"
	"github.com/devink/campusconnect/internal/login"
	"github.com/devink/campusconnect/internal/metrics"
	"github.com/devink/campusconnect/internal/session"
	"github.com/devink/campusconnect/internal/signup"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Deps are the collaborators served by the router.
type Deps struct {
	Forms        *signup.Registry
	Login        *login.Controller
	Gate         *session.Gate
	Identity     identity.Provider
	Tokens       TokenIssuer
	Feed         *feed.Feed
	Hub          *feed.Hub
	Cities       directory.CityLister
	Universities signup.UniversityLister
	Metrics      *metrics.Metrics

	AllowedOrigins []string
	MaxBodyBytes   int64
}

// NewRouter mounts every route.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if d.MaxBodyBytes > 0 {
		r.Use(middleware.RequestSize(d.MaxBodyBytes))
	}

	r.Get("/health", HealthHandler())
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	r.Get("/cities", CitiesHandler(d.Cities))
	r.Get("/universities", UniversitiesHandler(d.Universities))
	r.Get("/success", SuccessHandler())

	r.Route("/signup/forms", func(r chi.Router) {
		r.Post("/", CreateFormHandler(d.Forms))
		r.Get("/{id}", GetFormHandler(d.Forms))
		r.Patch("/{id}", UpdateFormHandler(d.Forms))
		r.Post("/{id}/submit", SubmitFormHandler(d.Forms, d.Tokens))
		r.Post("/{id}/google", SubmitFormGoogleHandler(d.Forms, d.Tokens))
	})

	r.Post("/login", LoginHandler(d.Login, d.Tokens))
	r.Post("/login/google", LoginGoogleHandler(d.Login, d.Tokens))

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(d.Gate, d.Tokens, d.Identity))
		r.Post("/logout", LogoutHandler(d.Identity, d.Tokens))
		r.Get("/me", MeHandler())
		r.Get("/events", FeedHandler(d.Feed))
		r.Post("/events", CreateEventHandler(d.Feed))
		r.Get("/events/stream", EventStreamHandler(d.Feed, d.Hub, d.AllowedOrigins))
	})

	return r
}
