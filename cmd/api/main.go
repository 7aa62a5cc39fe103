package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/mbruckner/vinetrack/internal/config"
	"github.com/mbruckner/vinetrack/internal/database"
	"github.com/mbruckner/vinetrack/internal/document"
	"github.com/mbruckner/vinetrack/internal/expense"
	"github.com/mbruckner/vinetrack/internal/export"
	"github.com/mbruckner/vinetrack/internal/finalize"
	vinetrackHttp "github.com/mbruckner/vinetrack/internal/http"
	belegHandler "github.com/mbruckner/vinetrack/internal/http/beleg"
	euerHandler "github.com/mbruckner/vinetrack/internal/http/euer"
	expenseHandler "github.com/mbruckner/vinetrack/internal/http/expense"
	exportHandler "github.com/mbruckner/vinetrack/internal/http/export"
	productHandler "github.com/mbruckner/vinetrack/internal/http/product"
	settingsHandler "github.com/mbruckner/vinetrack/internal/http/settings"
	syncHandler "github.com/mbruckner/vinetrack/internal/http/sync"
	"github.com/mbruckner/vinetrack/internal/kv"
	"github.com/mbruckner/vinetrack/internal/ledger"
	"github.com/mbruckner/vinetrack/internal/remote"
	"github.com/mbruckner/vinetrack/internal/settings"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := kv.New(db)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare storage", "error", err)
		os.Exit(1)
	}

	var (
		remoteClient    = remote.NewClient(cfg.Remote.BaseURL, logger)
		ledgerService   = ledger.NewService(store, remoteClient, time.Now)
		settingsService = settings.NewService(store)
		expenseService  = expense.NewService(store)
		renderer        = &document.FileRenderer{Dir: cfg.Receipts.Dir}
		finalizeService = finalize.NewService(ledgerService, renderer, logger, time.Now)
		exportService   = export.NewService(ledgerService, cfg.Receipts.Dir)
	)

	if err := ledgerService.Load(ctx); err != nil {
		slog.Error("failed to load ledger", "error", err)
		os.Exit(1)
	}

	var (
		productH  = productHandler.NewHandler(ledgerService, settingsService, finalizeService)
		belegH    = belegHandler.NewHandler(ledgerService, settingsService, finalizeService)
		euerH     = euerHandler.NewHandler(ledgerService, expenseService, settingsService)
		expenseH  = expenseHandler.NewHandler(expenseService)
		settingsH = settingsHandler.NewHandler(settingsService, ledgerService)
		syncH     = syncHandler.NewHandler(ledgerService, settingsService, logger)
		exportH   = exportHandler.NewHandler(exportService, logger, time.Now)
	)

	router := vinetrackHttp.New(cfg.Server.AllowedOrigins, productH, belegH, euerH, expenseH, settingsH, syncH, exportH)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	slog.Info("starting server", "addr", server.Addr)

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
