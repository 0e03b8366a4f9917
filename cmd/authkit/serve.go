package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-authkit"
	"github.com/goliatone/go-authkit/binding"
	"github.com/goliatone/go-authkit/config"
	"github.com/goliatone/go-authkit/logging"
	"github.com/goliatone/go-authkit/mail"
	"github.com/goliatone/go-authkit/messaging"
	"github.com/goliatone/go-authkit/metrics"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}

			if err := rt.cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, rt.cfg, rt.logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	app, closeFn, err := buildApp(db, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "address", cfg.Server.Address)
		errCh <- app.Listen(cfg.Server.Address)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down http server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return app.ShutdownWithContext(shutdownCtx)
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*bun.DB, error) {
	db, err := authkit.OpenDB(cfg.Persistence)
	if err != nil {
		return nil, err
	}

	if cfg.Persistence.AutoMigrate {
		if err := authkit.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		logger.Debug("migrations applied", "driver", cfg.Persistence.Driver)
	}

	return db, nil
}

// buildApp wires repositories, services, mailboxes and the broker sender
// into a fiber app. The returned func releases the broker writer.
func buildApp(db *bun.DB, cfg *config.Config, logger *logging.Logger) (*fiber.App, func(), error) {
	manager := authkit.NewRepositoryManager(db)
	manager.MustValidate()

	sessions, err := mail.NewSessions(cfg.Mail.Accounts...)
	if err != nil {
		return nil, nil, err
	}

	opts := []authkit.ControllerOption{
		authkit.WithControllerLogger(logger.Named("http")),
		authkit.WithControllerDebug(cfg.Logging.Level == "debug"),
		authkit.WithRoleService(authkit.NewLoginRoleService(manager.LoginRoles())),
		authkit.WithUserService(authkit.NewUserLoginService(manager.UserLogins(),
			authkit.WithUserLoginLogger(logger.Named("users")),
		)),
		authkit.WithImageConverter(binding.NewImageConverter(
			binding.WithImageLogger(logger.Named("binding")),
		)),
		authkit.WithMailboxes(mail.NewDirectory(sessions,
			mail.WithLogger(logger.Named("mail")),
			mail.WithMarkSeen(cfg.Mail.MarkSeen),
		)),
	}

	closeFn := func() {}
	if cfg.HasMessaging() {
		components, err := messaging.New(cfg.Messaging,
			messaging.WithLogger(logger.Named("messaging")),
			messaging.WithHeaders(authkit.AuditorHeaders),
		)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, authkit.WithMessageSender(components.Sender()))
		closeFn = func() {
			if err := components.Close(); err != nil {
				logger.Warn("failed to close broker writer", "error", err)
			}
		}
	}

	routes := &authkit.ControllerRoutes{
		Me:       "/me",
		Login:    "/login",
		Roles:    "/roles",
		Users:    "/users",
		Mail:     "/mail",
		Messages: "/messages",
	}
	opts = append(opts, authkit.WithControllerRoutes(routes))

	app := authkit.NewApp(logger.Named("http"),
		authkit.WithAppName(cfg.Server.AppName),
		authkit.WithBodyLimit(cfg.Server.BodyLimit),
		authkit.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
	)

	// metrics stay reachable without a token
	if cfg.Metrics.Enabled {
		metrics.Register()
		authkit.RegisterMetricsRoute(app, cfg.Metrics.Path)
	}

	app.Use(authkit.NewAuthMiddleware(cfg.Auth, logger.Named("auth")))
	authkit.RegisterRoutes(app, authkit.NewController(opts...))

	return app, closeFn, nil
}
