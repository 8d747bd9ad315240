package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Dosada05/mob-esports/db"
	"github.com/Dosada05/mob-esports/handlers"
	"github.com/Dosada05/mob-esports/realtime"
	"github.com/Dosada05/mob-esports/repositories"
	"github.com/Dosada05/mob-esports/routes"
	"github.com/Dosada05/mob-esports/services"
)

const (
	sweepInterval   = 10 * time.Minute // как часто чистим протухшие сессии
	shutdownTimeout = 15 * time.Second
)

func (cmds *commands) serve() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the web console (sessions, bracket views, realtime relay)",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Usage: "overrides MOB_SERVER_PORT"},
		},
		Action: func(c *cli.Context) error {
			if p := c.Int("port"); p > 0 {
				cmds.app.cfg.ServerPort = p
			}
			return cmds.app.runServer(c.Context)
		},
	}
}

func (a *app) runServer(parent context.Context) error {
	cfg, logger := a.cfg, a.logger

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Хранилище сессий: Postgres, если задан DSN, иначе в памяти
	sessionRepo := repositories.NewMemorySessionRepository()
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer func() {
			if err := dbConn.Close(); err != nil {
				logger.Error("failed to close database connection", slog.Any("error", err))
			} else {
				logger.Info("database connection closed")
			}
		}()
		if err := db.EnsureSchema(ctx, dbConn); err != nil {
			return err
		}
		sessionRepo = repositories.NewPostgresSessionRepository(dbConn)
		logger.Info("console sessions stored in postgres")
	}

	uploader, err := a.uploader(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize uploader: %w", err)
	}

	authService := services.NewAuthService(a.client.Auth, sessionRepo, cfg.SessionTTL, logger)
	relay := realtime.NewRelay(realtime.Config{
		BaseURL:        cfg.WSBaseURL,
		ReconnectDelay: cfg.ReconnectDelay,
	}, logger)

	authHandler := handlers.NewAuthHandler(authService, cfg.CookieSecure)
	tournamentHandler := handlers.NewTournamentHandler(a.client.Tournaments, a.brackets)
	adminHandler := handlers.NewAdminUserHandler(a.client.Users)
	uploadHandler := handlers.NewUploadHandler(uploader, "uploads")
	webSocketHandler := handlers.NewWebSocketHandler(relay, cfg.AllowedOrigins())
	logger.Info("HTTP handlers initialized")

	router := chi.NewRouter()
	routes.SetupRoutes(
		router,
		routes.Options{
			Resolver:       authService,
			AllowedOrigins: cfg.AllowedOrigins(),
		},
		authHandler,
		tournamentHandler,
		adminHandler,
		uploadHandler,
		webSocketHandler,
	)
	logger.Info("Routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		relay.Run(gCtx)
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gCtx.Done():
				return nil
			case <-ticker.C:
				if _, err := authService.Sweep(gCtx); err != nil {
					logger.Warn("session sweep failed", slog.Any("error", err))
				}
			}
		}
	})

	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			return err
		}
		logger.Info("server shutdown complete")
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("application exited")
	return nil
}
