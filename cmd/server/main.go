package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/dmezas/control-obras/internal/auth"
	"github.com/dmezas/control-obras/internal/config"
	"github.com/dmezas/control-obras/internal/export"
	httpserver "github.com/dmezas/control-obras/internal/interfaces/http"
	"github.com/dmezas/control-obras/internal/ledger"
	"github.com/dmezas/control-obras/internal/receipt"
	"github.com/dmezas/control-obras/internal/report"
	"github.com/dmezas/control-obras/internal/service"
	"github.com/dmezas/control-obras/internal/site"
	"github.com/dmezas/control-obras/internal/storage"
	"github.com/dmezas/control-obras/internal/upload"
	"github.com/dmezas/control-obras/pkg/utils"
)

func main() {
	// Local overrides for development; absence is fine.
	_ = gotenv.Load()

	configPath := "configs/config.yaml"
	if p := os.Getenv("OBRAS_CONFIG"); p != "" {
		configPath = p
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Control de Obras",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	sites, err := site.NewStore(site.Config{
		Dir:           cfg.Data.SitesDir,
		Names:         cfg.Sites.Names,
		Budgets:       cfg.Sites.Budgets,
		DefaultBudget: cfg.Sites.DefaultBudget,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize site store", zap.Error(err))
	}

	cashLedger, err := ledger.NewStore(cfg.Data.LedgerPath, logger)
	if err != nil {
		logger.Fatal("Failed to initialize petty-cash ledger", zap.Error(err))
	}

	blobs, err := storage.NewBlobStore(cfg.Data.PhotosDir, cfg.Data.ReceiptsDir, logger)
	if err != nil {
		logger.Fatal("Failed to initialize blob storage", zap.Error(err))
	}

	gateway := upload.NewGateway(upload.Config{
		URL:      cfg.Upload.URL,
		Token:    cfg.Upload.Token,
		FolderID: cfg.Upload.FolderID,
		Timeout:  cfg.Upload.Timeout,
	}, logger)

	composer := report.NewComposer(logger)

	today := func() string { return time.Now().Format("2006-01-02") }

	reports := service.NewReportService(
		sites,
		blobs,
		composer,
		gateway,
		cfg.Sites.Names,
		today,
		logger,
	)

	authenticator := auth.NewAuthenticator(auth.Config{
		JefeUser:      cfg.Auth.JefeUser,
		JefePass:      cfg.Auth.JefePass,
		PasantePrefix: cfg.Auth.PasantePrefix,
		PasantePass:   cfg.Auth.PasantePass,
		TokenSecret:   cfg.Auth.TokenSecret,
		TokenTTL:      cfg.Auth.TokenTTL,
	}, logger)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, httpserver.Deps{
		Auth:      authenticator,
		Reports:   reports,
		Sites:     sites,
		Ledger:    cashLedger,
		Blobs:     blobs,
		Previewer: receipt.NewPreviewer(logger),
		Exporter:  export.NewLedgerExporter(logger),
		SiteNames: cfg.Sites.Names,
		Today:     today,
	}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Control de Obras stopped")
}
