package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"storagedrive/internal/auth"
	"storagedrive/internal/config"
	"storagedrive/internal/handler"
	"storagedrive/internal/logger"
	"storagedrive/internal/preview"
	"storagedrive/internal/repository"
	"storagedrive/internal/service"
	"storagedrive/internal/service/minio"
	"storagedrive/internal/service/s3"
)

const (
	connectAttempts = 5
	connectDelay    = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	// Локальный .env необязателен
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: failed to load .env: %v", err)
	}

	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(appConfig.Log.Level, appConfig.Log.Development)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(appConfig, zl); err != nil {
		zl.Fatal("server stopped with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключаемся к базе данных
	db, err := repository.Open(ctx, cfg.Database.Driver, cfg.Database.GetDSN(), connectAttempts, connectDelay, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.Database.Driver == repository.DriverPostgres {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := repository.Migrate(db, cfg.Database.MigrationURL(), log); err != nil {
		return err
	}

	store := repository.NewStore(db, cfg.Storage.DefaultQuotaBytes)

	uploader, err := newUploader(ctx, cfg.Storage, log)
	if err != nil {
		return err
	}

	var thumbnailer service.Thumbnailer
	if cfg.Storage.Thumbnails {
		thumbnailer = preview.NewThumbnailer(0)
	}

	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		return fmt.Errorf("failed to load auth config: %w", err)
	}

	// Инициализация сервисов
	activityService := service.NewActivityService(store.Activities, cfg.Storage.ActivityBuffer, log)
	defer activityService.Close()

	folderService := service.NewFolderService(store, activityService, log)
	itemService := service.NewItemService(store, uploader, thumbnailer, activityService, log)
	copyService := service.NewCopyService(store, activityService, log)
	favoriteService := service.NewFavoriteService(store, activityService, log)
	trashService := service.NewTrashService(store.Trash)
	quotaService := service.NewStorageQuotaService(store, log)

	router := handler.NewRouter(handler.Deps{
		Verifier:       auth.NewVerifier(authConfig),
		Folders:        folderService,
		Items:          itemService,
		Copies:         copyService,
		Favorites:      favoriteService,
		Activities:     activityService,
		Trash:          trashService,
		Quotas:         quotaService,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		RequestTimeout: cfg.Server.RequestTimeout,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Log:            log,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// gRPC сервер отдает только стандартный health-check
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)

	lis, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.Server.GRPCPort))
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC: %w", err)
	}

	errCh := make(chan error, 2)

	go func() {
		log.Info("starting gRPC server", zap.String("port", cfg.Server.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("failed to serve gRPC: %w", err)
		}
	}()

	go func() {
		log.Info("starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("failed to start HTTP server: %w", err)
		}
	}()

	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	go reconcileLoop(ctx, quotaService, cfg.Server.ReconcileInterval, log)

	select {
	case <-ctx.Done():
		log.Info("shutting down servers")
	case err = <-errCh:
		log.Error("server failed, shutting down", zap.Error(err))
	}

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	log.Info("server exited properly")
	return err
}

func newUploader(ctx context.Context, cfg config.StorageConfig, log *zap.Logger) (service.Uploader, error) {
	switch cfg.Provider {
	case config.ProviderMinio:
		minioConfig, err := minio.NewConfig(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load minio config: %w", err)
		}
		client, err := minio.NewClient(ctx, minioConfig, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return client, nil
	default:
		s3Config, err := s3.NewConfig(cfg.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load S3 config: %w", err)
		}
		client, err := s3.NewClient(ctx, s3Config, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		return client, nil
	}
}

// reconcileLoop периодически выравнивает счетчики с фактическими данными
func reconcileLoop(ctx context.Context, quotas *service.StorageQuotaService, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reports, err := quotas.ReconcileAll(ctx)
			if err != nil {
				log.Error("reconcile failed", zap.Error(err))
				continue
			}
			log.Info("reconcile finished", zap.Int("owners", len(reports)))
		}
	}
}
