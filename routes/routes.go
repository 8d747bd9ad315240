package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Dosada05/mob-esports/handlers"
	"github.com/Dosada05/mob-esports/middleware"
)

// Options holds what the router needs besides the handlers.
type Options struct {
	Resolver       middleware.SessionResolver
	AllowedOrigins []string
	// LoginRate запросов на логин с одного IP за минуту
	LoginRate int
}

func SetupRoutes(
	router chi.Router,
	opts Options,
	authHandler *handlers.AuthHandler,
	tournamentHandler *handlers.TournamentHandler,
	adminHandler *handlers.AdminUserHandler,
	uploadHandler *handlers.UploadHandler,
	webSocketHandler *handlers.WebSocketHandler,
) {
	if opts.LoginRate <= 0 {
		opts.LoginRate = 10
	}

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", middleware.SessionHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", promhttp.Handler())

	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(opts.Resolver, nil))

		r.Route("/auth", func(r chi.Router) {
			r.With(httprate.LimitByIP(opts.LoginRate, time.Minute)).Post("/login", authHandler.Login)
			r.Post("/logout", authHandler.Logout)
			r.Get("/me", authHandler.Me)
		})

		r.Route("/tournaments", func(r chi.Router) {
			// Публичные маршруты
			r.Get("/", tournamentHandler.ListTournaments)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", tournamentHandler.GetTournament)
				r.Get("/bracket", tournamentHandler.GetBracket)

				r.With(middleware.Require(middleware.AccessPlayer)).Post("/join", tournamentHandler.JoinTournament)

				// Только организаторы и админы
				r.Group(func(r chi.Router) {
					r.Use(middleware.Require(middleware.AccessOrganizer))
					r.Post("/bracket", tournamentHandler.GenerateBracket)
					r.Put("/matches/{matchID}", tournamentHandler.UpdateMatch)
				})
			})
		})

		r.With(middleware.Require(middleware.AccessPlayer)).Post("/uploads", uploadHandler.Upload)

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Require(middleware.AccessAdmin))
			r.Get("/users", adminHandler.ListUsers)
			r.Patch("/users/{userID}/role", adminHandler.UpdateRole)
		})

		r.With(middleware.Require(middleware.AccessPlayer)).Get("/ws", webSocketHandler.ServeWs)
	})
}
