package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"github.com/riverqueue/river/rivermigrate"
	"github.com/rs/cors"

	"github.com/oichat/backend/internal/agents"
	"github.com/oichat/backend/internal/auth"
	"github.com/oichat/backend/internal/chatcache"
	"github.com/oichat/backend/internal/config"
	"github.com/oichat/backend/internal/conversations"
	"github.com/oichat/backend/internal/dashboard"
	"github.com/oichat/backend/internal/middleware"
	"github.com/oichat/backend/internal/provider"
	"github.com/oichat/backend/internal/reconcile"
	"github.com/oichat/backend/internal/repository"
	"github.com/oichat/backend/internal/router"
	"github.com/oichat/backend/internal/users"
	"github.com/oichat/backend/internal/whatsapp"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Unable to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("Cannot reach PostgreSQL (connection refused or invalid). Ensure Postgres is running, e.g. make dev-up or docker-compose up -d", "error", err)
		os.Exit(1)
	}
	slog.Info("Connected to PostgreSQL database successfully!")

	// River migrations
	migrator, err := rivermigrate.New(riverpgxv5.New(pool), nil)
	if err != nil {
		slog.Error("Failed to create River migrator", "error", err)
		os.Exit(1)
	}
	if _, err := migrator.Migrate(ctx, rivermigrate.DirectionUp, nil); err != nil {
		slog.Error("River migrate up failed. If the error is 'connection refused', start PostgreSQL first (e.g. make dev-up)", "error", err)
		os.Exit(1)
	}
	slog.Info("River migrations applied")

	// Repositories
	userRepo := repository.NewUserRepo(pool)
	agentRepo := repository.NewAgentRepo(pool)
	connRepo := repository.NewConnectionRepo(pool)
	leadRepo := repository.NewLeadRepo(pool)
	conversionRepo := repository.NewConversionRepo(pool)

	// Provider gateway
	gateway := provider.NewGateway(cfg.WhatsAppAPIBaseURL, cfg.WhatsAppAPIKey, logger)

	// Services
	authRepo := auth.NewRepository(pool)
	authSvc := auth.NewService(authRepo, cfg.JWTSecret)
	agentsSvc := agents.NewService(agentRepo)
	whatsappSvc := whatsapp.NewService(connRepo, agentRepo, userRepo, gateway, logger)

	// Local chat cache for the dashboard test chat
	chatStore, err := chatcache.Open(cfg.ChatCachePath)
	if err != nil {
		slog.Error("Failed to open chat cache", "path", cfg.ChatCachePath, "error", err)
		os.Exit(1)
	}
	defer chatStore.Close()

	// Background reconciliation of PENDING connections whose client went away
	workers := river.NewWorkers()
	river.AddWorker(workers, reconcile.NewReconcilePendingWorker(connRepo, whatsappSvc, logger))

	riverClient, err := river.NewClient(riverpgxv5.New(pool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: 10},
		},
		Workers: workers,
		PeriodicJobs: []*river.PeriodicJob{
			river.NewPeriodicJob(
				river.PeriodicInterval(time.Minute),
				func() (river.JobArgs, *river.InsertOpts) {
					return reconcile.ReconcilePendingArgs{}, nil
				},
				&river.PeriodicJobOpts{RunOnStart: true},
			),
		},
	})
	if err != nil {
		slog.Error("Failed to create River client", "error", err)
		os.Exit(1)
	}

	// Handlers
	h := router.Handlers{
		Auth:          auth.NewHandler(authSvc, logger),
		Agents:        agents.NewHandler(agentsSvc, logger),
		Users:         users.NewHandler(userRepo, connRepo, logger),
		WhatsApp:      whatsapp.NewHandler(whatsappSvc, logger),
		Dashboard:     dashboard.NewHandler(leadRepo, conversionRepo, logger),
		Conversations: conversations.NewHandler(gateway, agentRepo, chatStore, logger),
	}

	sessionAuth := middleware.SessionAuth(authSvc, userRepo)
	apiRouter := router.New(h, sessionAuth)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
	}).Handler(apiRouter)

	// Start River client (runs the periodic reconcile sweep)
	riverCtx, stopRiver := context.WithCancel(ctx)
	defer stopRiver()
	go func() {
		if err := riverClient.Start(riverCtx); err != nil && riverCtx.Err() == nil {
			slog.Error("River client stopped", "error", err)
		}
	}()

	serverAddr := "0.0.0.0:" + cfg.Port
	slog.Info("Starting HTTP server", "addr", serverAddr)
	if err := http.ListenAndServe(serverAddr, corsHandler); err != nil {
		slog.Error("HTTP server failed", "error", err)
		os.Exit(1)
	}
}
