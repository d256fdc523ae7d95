package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/complyco/caseflow/internal/application/dispatcher"
	"github.com/complyco/caseflow/internal/application/service"
	"github.com/complyco/caseflow/internal/config"
	"github.com/complyco/caseflow/internal/document"
	"github.com/complyco/caseflow/internal/export"
	httpserver "github.com/complyco/caseflow/internal/interfaces/http"
	"github.com/complyco/caseflow/internal/notifier"
	"github.com/complyco/caseflow/internal/repository"
	"github.com/complyco/caseflow/internal/storage"
	"github.com/complyco/caseflow/pkg/database"
	"github.com/complyco/caseflow/pkg/utils"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
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

	logger.Info("Starting compliance case workflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

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

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	if err := os.MkdirAll(cfg.Storage.BaseDir, 0755); err != nil {
		logger.Fatal("Failed to create document storage directory", zap.Error(err))
	}

	// Repositories
	jobRepo := repository.NewJobRepository(db, logger)
	approvalRepo := repository.NewApprovalRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	notificationRepo := repository.NewNotificationRepository(db, logger)

	// Document pipeline
	blobStore := storage.NewLocalBlobStore(cfg.Storage.BaseDir, cfg.Storage.BaseURL, logger)
	validator := document.NewValidator(document.Config{
		AllowedMimeTypes:  cfg.Workflow.AllowedMimeTypes,
		MaxSizeBytes:      cfg.Workflow.MaxDocumentBytes,
		MaxFinalSizeBytes: cfg.Workflow.MaxFinalDocumentBytes,
		InspectPDF:        cfg.Workflow.InspectPDF,
	}, logger)

	// Notification fan-out; the Lark channel is optional
	var channels []notifier.Channel
	if cfg.Lark.Enabled {
		channels = append(channels, notifier.NewLarkChannel(notifier.LarkConfig{
			AppID:     cfg.Lark.AppID,
			AppSecret: cfg.Lark.AppSecret,
		}, logger))
	}
	notifierService := notifier.NewService(userRepo, notificationRepo, channels, logger)

	sugared := utils.NewSugaredLogger(logger)

	// Event wiring
	eventDispatcher := dispatcher.NewDispatcher(dispatcher.WithLogger(sugared))
	defer eventDispatcher.Close()

	notificationHandler := service.NewNotificationHandler(notifierService, sugared)
	notificationHandler.Register(eventDispatcher)

	// Workflow orchestration
	workflowService := service.NewWorkflowService(
		jobRepo,
		approvalRepo,
		userRepo,
		blobStore,
		validator,
		eventDispatcher,
		cfg.Storage.UploadTimeout,
		sugared,
	)

	auditReporter := export.NewAuditReporter(jobRepo, approvalRepo, logger)

	server := httpserver.NewServer(httpserver.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, workflowService, jobRepo, auditReporter, sugared)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
