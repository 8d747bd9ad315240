package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/Dosada05/mob-esports/apiclient"
	"github.com/Dosada05/mob-esports/config"
	"github.com/Dosada05/mob-esports/realtime"
	"github.com/Dosada05/mob-esports/services"
	"github.com/Dosada05/mob-esports/storage"
)

// app holds what every command shares.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	client   *apiclient.Client
	session  services.SessionService
	brackets services.BracketService
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	client := apiclient.NewClient(cfg.APIBaseURL,
		apiclient.WithTimeout(cfg.RequestTimeout),
		apiclient.WithLogger(logger),
		apiclient.WithRateLimit(cfg.APIRateLimit, cfg.APIBurst),
		apiclient.WithBreaker(apiclient.BreakerSettings{}),
	)

	store, err := storage.NewFileTokenStore(cfg.TokenFile, cfg.TokenSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	session := services.NewSessionService(client.Auth, store, logger)
	session.OnChange(client.SetToken)

	return &app{
		cfg:      cfg,
		logger:   logger,
		client:   client,
		session:  session,
		brackets: services.NewBracketService(client.Tournaments, logger),
	}, nil
}

// restore loads the persisted session. A transport failure keeps the stored
// token and is reported; the command then runs anonymously.
func (a *app) restore(ctx context.Context) {
	if err := a.session.Init(ctx); err != nil {
		a.logger.Warn("could not verify stored session", slog.Any("error", err))
	}
}

func (a *app) requireLogin(ctx context.Context) (*services.Session, error) {
	a.restore(ctx)
	s := a.session.Session()
	if !s.Authenticated() {
		return nil, cli.Exit("not logged in, run `mob login` first", 1)
	}
	return s, nil
}

// realtimeManager follows the session token for long-running commands.
func (a *app) realtimeManager() *realtime.Manager {
	m := realtime.NewManager(realtime.Config{
		BaseURL:        a.cfg.WSBaseURL,
		ReconnectDelay: a.cfg.ReconnectDelay,
	}, a.logger)
	a.session.OnChange(func(token string) {
		if err := m.SetToken(token); err != nil {
			a.logger.Warn("failed to follow session token", slog.Any("error", err))
		}
	})
	return m
}

func (a *app) uploader(ctx context.Context) (storage.FileUploader, error) {
	if !a.cfg.R2Enabled() {
		return storage.NewAPIUploader(a.client), nil
	}
	return storage.NewCloudflareR2Uploader(ctx, storage.CloudflareR2UploaderConfig{
		AccountID:       a.cfg.R2AccountID,
		AccessKeyID:     a.cfg.R2AccessKeyID,
		SecretAccessKey: a.cfg.R2SecretAccessKey,
		BucketName:      a.cfg.R2BucketName,
		PublicBaseURL:   a.cfg.R2PublicBaseURL,
	}, a.logger)
}

// commands resolves the app lazily: it only exists after Before has run.
type commands struct {
	app *app
}

func newCLI() *cli.App {
	cmds := &commands{}

	return &cli.App{
		Name:  "mob",
		Usage: "MOB Esports client: tournaments, brackets, realtime inbox and the web console",
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return cli.Exit(fmt.Sprintf("failed to load configuration: %v", err), 1)
			}
			logger := newLogger(cfg.LogLevel)
			slog.SetDefault(logger)

			cmds.app, err = newApp(cfg, logger)
			return err
		},
		Commands: []*cli.Command{
			cmds.login(),
			cmds.logout(),
			cmds.whoami(),
			cmds.tournaments(),
			cmds.bracket(),
			cmds.listen(),
			cmds.chat(),
			cmds.upload(),
			cmds.serve(),
		},
		ExitErrHandler: func(c *cli.Context, err error) {
			if err == nil {
				return
			}
			var exitCoder cli.ExitCoder
			if errors.As(err, &exitCoder) {
				cli.HandleExitCoder(err)
				return
			}
			fmt.Fprintln(c.App.ErrWriter, describe(err))
			slog.Debug("command failed", slog.Any("error", err))
			os.Exit(1)
		},
	}
}

// describe shows API failures the way the web front end does and local
// failures as they are.
func describe(err error) string {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) || errors.Is(err, apiclient.ErrUnavailable) {
		return apiclient.UserMessage(err)
	}
	return err.Error()
}

func main() {
	if err := newCLI().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
