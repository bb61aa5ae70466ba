package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	config "github.com/anjiri1684/tutor_desk/configs"
	"github.com/anjiri1684/tutor_desk/database"
	"github.com/anjiri1684/tutor_desk/handlers"
	"github.com/anjiri1684/tutor_desk/jobs"
	"github.com/anjiri1684/tutor_desk/routes"
	"github.com/anjiri1684/tutor_desk/services"
	"github.com/anjiri1684/tutor_desk/websocket"
	"github.com/robfig/cron/v3"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := database.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer st.Close()

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithLocation(cfg.Location),
	}

	var archive services.DocumentArchive
	if cfg.CloudinaryURL != "" {
		cld, err := services.NewCloudinaryArchive(cfg.CloudinaryURL, cfg.CloudinaryFolder)
		if err != nil {
			logger.Warn("document archive disabled", slog.Any("error", err))
		} else {
			archive = cld
		}
	}

	ledger := services.NewLedgerService(st, opts...)
	svc := handlers.Services{
		Students: services.NewStudentService(st, opts...),
		Ledger:   ledger,
		Finances: services.NewFinanceService(st, cfg.PricePoints, opts...),
		Agenda:   services.NewAgendaService(st, cfg.Grid, opts...),
		Invoices: services.NewInvoiceService(st, cfg.Issuer, services.NewChromePDFRenderer(), archive, opts...),
	}

	if n, err := ledger.ReconcileAll(ctx); err != nil {
		logger.Warn("startup pack reconciliation failed", slog.Any("error", err))
	} else if n > 0 {
		logger.Info("startup pack reconciliation", slog.Int("corrected", n))
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ReconcileCron, jobs.ReconcilePacks(ledger, logger, 5*time.Minute)); err != nil {
		logger.Error("invalid RECONCILE_CRON", slog.String("spec", cfg.ReconcileCron), slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()
	logger.Info("✅ Cron job for pack reconciliation scheduled successfully.", slog.String("spec", cfg.ReconcileCron))

	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	h := handlers.New(st, svc, hub, handlers.AuthConfig{
		JWTSecret:         cfg.JWTSecret,
		AdminPasswordHash: cfg.AdminPasswordHash,
		TokenTTL:          cfg.TokenTTL,
	}, logger)
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is not set, the API is open")
	}

	app := routes.NewApp(h, routes.AppOptions{
		Logger:      logger,
		TimeZone:    cfg.Location.String(),
		RequestLog:  true,
		PrintRoutes: true,
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		<-c.Stop().Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			logger.Error("shutdown failed", slog.Any("error", err))
		}
	}()

	logger.Info("✅ Server is running", slog.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Error("🔥 Server failed to start", slog.Any("error", err))
		os.Exit(1)
	}
}
