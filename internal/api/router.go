package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/inventory-tracker/internal/api/handlers"
	"github.com/isdelr/inventory-tracker/internal/auth"
	"github.com/isdelr/inventory-tracker/internal/services"
	"github.com/isdelr/inventory-tracker/internal/views"
)

// Dependencies bundles what the router hands to its handlers.
type Dependencies struct {
	DB          handlers.Pinger
	Sessions    *auth.SessionManager
	Users       services.UserServiceProvider
	Items       services.ItemServiceProvider
	Images      handlers.ImageStore
	Views       *views.Renderer
	CORSOrigins []string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// Cross-origin access is off unless origins are configured
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Users, deps.Sessions, deps.Views)
	itemHandler := handlers.NewItemHandler(deps.Items, deps.Images, deps.Views)
	healthHandler := handlers.NewHealthHandler(deps.DB)

	r.NotFound(handlers.NotFound(deps.Views))
	r.Get("/healthz", healthHandler.Check)

	r.Get("/register", authHandler.RegisterForm)
	r.Post("/register", authHandler.Register)
	r.Get("/login", authHandler.LoginForm)
	r.Post("/login", authHandler.Login)

	// Everything below requires a signed-in user
	r.Group(func(r chi.Router) {
		r.Use(deps.Sessions.RequireAuth(authHandler.LoginRequired))

		r.Get("/logout", authHandler.Logout)

		r.Get("/", itemHandler.List)
		r.Get("/add", itemHandler.AddForm)
		r.Post("/add", itemHandler.Add)
		r.Get("/edit/{id:[0-9]+}", itemHandler.EditForm)
		r.Post("/edit/{id:[0-9]+}", itemHandler.Edit)
		r.Post("/delete/{id:[0-9]+}", itemHandler.Delete)
		r.Get("/view/{id:[0-9]+}", itemHandler.View)
		r.Get("/search", itemHandler.Search)
		r.Get("/uploads/{name}", itemHandler.ServeImage)
	})

	return r
}
