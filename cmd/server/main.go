package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/obralink/vales/internal/config"
	"github.com/obralink/vales/internal/delivery"
	"github.com/obralink/vales/internal/document"
	"github.com/obralink/vales/internal/export"
	"github.com/obralink/vales/internal/folio"
	httpadapter "github.com/obralink/vales/internal/interfaces/http"
	"github.com/obralink/vales/internal/issuance"
	"github.com/obralink/vales/internal/repository"
	"github.com/obralink/vales/internal/verify"
	"github.com/obralink/vales/pkg/database"
	"github.com/obralink/vales/pkg/idgen"
	"github.com/obralink/vales/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
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

	logger.Info("Starting vale issuance service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.Run(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	voucherRepo := repository.NewVoucherRepository(db, logger)
	tariffRepo := repository.NewTariffRepository(db, logger)

	// Initialize id and folio sources
	ids, err := idgen.New(cfg.Issuance.NodeID)
	if err != nil {
		logger.Fatal("Failed to initialize id generator", zap.Error(err))
	}
	sequencer := folio.NewSequencer(voucherRepo, logger)

	// Initialize the document pipeline
	embedder := verify.NewEmbedder(cfg.Verification.BaseURL, cfg.Verification.Settle, logger)
	renderer := document.NewRenderer(cfg.Issuance.CompanyName, logger)
	inspector := document.NewInspector(logger)

	deliverer, err := buildDeliverer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize delivery channel", zap.Error(err))
	}

	// Initialize coordinators
	registrar := issuance.NewRegistrar(sequencer, ids, tariffRepo, voucherRepo, logger)
	coordinator := issuance.NewCoordinator(voucherRepo, embedder, renderer, inspector, deliverer, logger)
	exporter := export.NewLedgerExporter(voucherRepo, logger)

	// Initialize HTTP server
	handlers := httpadapter.NewHandlers(registrar, coordinator, voucherRepo, exporter, logger)
	server := httpadapter.NewServer(httpadapter.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}

// buildDeliverer selects the delivery channel from configuration
func buildDeliverer(cfg *config.Config, logger *zap.Logger) (delivery.Deliverer, error) {
	switch cfg.Delivery.Mode {
	case "local":
		if err := os.MkdirAll(cfg.Delivery.ShareDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create share directory: %w", err)
		}
		return delivery.NewLocalShare(cfg.Delivery.ShareDir, logger), nil
	case "email":
		return delivery.NewEmailDeliverer(delivery.SMTPConfig{
			Host:       cfg.Delivery.SMTPHost,
			Port:       cfg.Delivery.SMTPPort,
			Username:   cfg.Delivery.SMTPUser,
			Password:   cfg.Delivery.SMTPPass,
			From:       cfg.Delivery.From,
			Recipients: cfg.Delivery.Recipients,
		}, logger), nil
	default:
		return nil, fmt.Errorf("unknown delivery mode %q", cfg.Delivery.Mode)
	}
}
