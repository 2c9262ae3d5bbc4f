package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/django/v3"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/expenso-app/expenso/auth"
	"github.com/expenso-app/expenso/config"
	"github.com/expenso-app/expenso/expense"
	"github.com/expenso-app/expenso/metrics"
	"github.com/expenso-app/expenso/middleware/apiguard"
	"github.com/expenso-app/expenso/middleware/viewguard"
	"github.com/expenso-app/expenso/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()

	db, err := store.OpenDB(cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(ctx, db); err != nil {
		return err
	}

	repo := store.NewRepositoryManager(db)
	repo.MustValidate()

	tokens, err := auth.NewTokenService(cfg)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	authLogger := &slogAdapter{logger: logger.With("component", "auth")}

	auther := auth.NewAuthenticator(repo.Users(), tokens).
		WithLogger(authLogger).
		WithRecorder(collector)

	register := auth.NewRegisterUserHandler(repo, cfg.BcryptCost)
	register.Logger = authLogger

	cookies := auth.CookieWriter{Secure: cfg.IsProduction()}

	app := fiber.New(fiber.Config{
		AppName:           "expenso",
		Views:             django.New(cfg.ViewsDir, ".html"),
		PassLocalsToViews: true,
		ErrorHandler:      errorHandler,
	})

	guard := apiguard.New(apiguard.Config{Verifier: tokens})

	// Auth endpoints. Logout requires a bearer access token.
	authController := auth.NewController(auther, register, cookies,
		auth.WithControllerLogger(authLogger))
	authController.RegisterRoutes(app.Group("/auth"), guard)

	// JSON API behind the access token guard.
	api := app.Group("/api", guard)
	expense.NewController(repo.Expenses()).
		WithLogger(&slogAdapter{logger: logger.With("component", "expense")}).
		RegisterRoutes(api)

	registerViews(app, auther, cookies)

	app.Get("/favicon.ico", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})

	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(auth.Response{
			Success: false,
			Message: "Not found",
		})
	})

	if cfg.MetricsAddr != "" {
		go func() {
			logger.Info("metrics listener starting", "addr", cfg.MetricsAddr)
			if err := http.ListenAndServe(cfg.MetricsAddr, metrics.SetupMetricsRoute(registry)); err != nil {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr(), "env", cfg.Env)
		if err := app.Listen(cfg.Addr()); err != nil {
			logger.Error("listener failed", "error", err)
		}
	}()

	sig := waitExitSignal()
	logger.Info("shutting down", "signal", sig.String())

	return app.Shutdown()
}

// registerViews mounts the server rendered pages. The login page
// bounces authenticated browsers home, everything else sits behind the
// session guard with silent renewal.
func registerViews(app *fiber.App, auther *auth.Authenticator, cookies auth.CookieWriter) {
	guardCfg := viewguard.Config{
		Auther:  auther,
		Cookies: cookies,
	}

	app.Get("/login", viewguard.RedirectIfAuthenticated(guardCfg, "/"), func(c *fiber.Ctx) error {
		return c.Render("login", fiber.Map{"title": "Sign in"})
	})

	// The guard is attached per route so unmatched paths still fall
	// through to the 404 handler instead of bouncing to the login page.
	guard := viewguard.New(guardCfg)

	app.Get("/", guard, func(c *fiber.Ctx) error {
		return c.Render("index", fiber.Map{
			"title":  "Expenses",
			"userID": viewguard.UserID(c),
		})
	})
	app.Get("/expense", guard, func(c *fiber.Ctx) error {
		return c.Render("expense", fiber.Map{
			"title":      "New expense",
			"userID":     viewguard.UserID(c),
			"categories": store.Categories,
			"expenseID":  "",
		})
	})
	app.Get("/expense/:id", guard, func(c *fiber.Ctx) error {
		return c.Render("expense", fiber.Map{
			"title":      "Edit expense",
			"userID":     viewguard.UserID(c),
			"categories": store.Categories,
			"expenseID":  c.Params("id"),
		})
	})
}

// errorHandler renders the error page for browser requests and the
// JSON envelope for everything else. Internal detail stays in the log.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	slog.Error("request failed", "path", c.Path(), "error", err)

	if c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMETextHTML {
		if renderErr := c.Status(code).Render("errors/500", fiber.Map{
			"title": "Something went wrong",
		}); renderErr == nil {
			return nil
		}
	}

	return c.Status(code).JSON(auth.Response{
		Success: false,
		Message: "Internal server error",
	})
}

func waitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
