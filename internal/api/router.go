package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mkc909/cryptointel-data-system-sub000/internal/api/handlers"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/auth"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/services"
	"github.com/mkc909/cryptointel-data-system-sub000/internal/ws"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(hub *ws.Hub, corsOrigin string, priceSvc services.PriceServiceProvider, signalSvc services.SignalServiceProvider, eventSvc services.EventServiceProvider, userSvc services.UserServiceProvider) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	wsHandler := handlers.NewWebSocketHandler(hub)
	statsHandler := handlers.NewStatsHandler(hub)
	priceHandler := handlers.NewPriceHandler(priceSvc)
	signalHandler := handlers.NewSignalHandler(signalSvc)
	eventHandler := handlers.NewEventHandler(eventSvc)
	authHandler := handlers.NewAuthHandler(userSvc)

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket connection endpoint
		r.Get("/ws", wsHandler.Serve)

		// Hub introspection for operational tooling
		r.Get("/stats", statsHandler.Get)
		r.Get("/stats/sessions", statsHandler.GetSessions)

		r.Route("/prices", func(r chi.Router) {
			r.Get("/summary", priceHandler.GetSummary)
			r.Get("/{symbol}", priceHandler.GetLatest)
			r.Get("/{symbol}/history", priceHandler.GetHistory)
		})

		r.Get("/signals", signalHandler.GetRecent)
		r.Get("/events", eventHandler.GetRecent)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.With(auth.JWTMiddleware()).Get("/me", authHandler.Me)
		})
	})

	return r
}
