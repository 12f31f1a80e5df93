package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/formpilot/formpilot/internal/api/handlers"
	appMiddleware "github.com/formpilot/formpilot/internal/api/middlewares"
	"github.com/formpilot/formpilot/internal/config"
	"github.com/formpilot/formpilot/internal/docproc"
	"github.com/formpilot/formpilot/internal/objectstore"
	"github.com/formpilot/formpilot/internal/realtime"
	"github.com/formpilot/formpilot/internal/store"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, st store.Store, objects objectstore.ObjectStore, processor *docproc.Processor, hub *realtime.Hub) *Server {
	authHandler := handlers.NewAuthHandler(st, cfg)
	formHandler := handlers.NewFormHandler(st, objects, processor, hub, cfg)
	profileHandler := handlers.NewProfileHandler(st)
	messageHandler := handlers.NewMessageHandler(st, hub)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(api chi.Router) {
		// public endpoints
		api.Group(func(public chi.Router) {
			public.Use(middleware.Timeout(60 * time.Second))
			public.Post("/signup", authHandler.Signup)
			public.Post("/login", authHandler.Login)
		})

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			protected.Use(middleware.Timeout(60 * time.Second))

			protected.Post("/forms/upload", formHandler.Upload)
			protected.Get("/forms", formHandler.List)
			protected.Get("/forms/{id}", formHandler.Get)
			protected.Patch("/forms/{id}", formHandler.Update)
			protected.Delete("/forms/{id}", formHandler.Delete)
			protected.Post("/forms/{id}/favorite", formHandler.Favorite)
			protected.Post("/forms/{id}/autofill", formHandler.Autofill)
			protected.Get("/forms/{id}/download", formHandler.Download)

			protected.Post("/profiles", profileHandler.Create)
			protected.Get("/profiles", profileHandler.List)
			protected.Get("/profiles/{id}", profileHandler.Get)
			protected.Put("/profiles/{id}", profileHandler.Update)
			protected.Delete("/profiles/{id}", profileHandler.Delete)

			protected.Get("/messages", messageHandler.List)
			protected.Post("/messages", messageHandler.Send)
			protected.Delete("/messages/{id}", messageHandler.Delete)
		})

		// The event stream is long-lived, so it skips the timeout middleware.
		api.Group(func(stream chi.Router) {
			stream.Use(appMiddleware.JWTMiddleware(cfg.JWTSecret))
			stream.Get("/messages/stream", messageHandler.Stream)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down http server")
	return s.httpServer.Shutdown(ctx)
}
