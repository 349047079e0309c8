package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/omnipos-stock-service/config"
	"github.com/fekuna/omnipos-stock-service/internal/auth"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/broker"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/cache"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/database"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/logger"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/retry"
	"github.com/fekuna/omnipos-stock-service/internal/pkg/telemetry"

	alertH "github.com/fekuna/omnipos-stock-service/internal/alert/handler"
	alertNotifierPkg "github.com/fekuna/omnipos-stock-service/internal/alert/notifier"
	alertRepoPkg "github.com/fekuna/omnipos-stock-service/internal/alert/repository"
	alertUCPkg "github.com/fekuna/omnipos-stock-service/internal/alert/usecase"

	locH "github.com/fekuna/omnipos-stock-service/internal/location/handler"
	locReconcilerPkg "github.com/fekuna/omnipos-stock-service/internal/location/reconciler"
	locRepoPkg "github.com/fekuna/omnipos-stock-service/internal/location/repository"
	locUCPkg "github.com/fekuna/omnipos-stock-service/internal/location/usecase"

	mvH "github.com/fekuna/omnipos-stock-service/internal/movement/handler"
	mvRepoPkg "github.com/fekuna/omnipos-stock-service/internal/movement/repository"
	mvUCPkg "github.com/fekuna/omnipos-stock-service/internal/movement/usecase"

	stockH "github.com/fekuna/omnipos-stock-service/internal/stock/handler"
	stockListenerPkg "github.com/fekuna/omnipos-stock-service/internal/stock/listener"
	stockRepoPkg "github.com/fekuna/omnipos-stock-service/internal/stock/repository"
	stockUCPkg "github.com/fekuna/omnipos-stock-service/internal/stock/usecase"

	trH "github.com/fekuna/omnipos-stock-service/internal/transfer/handler"
	trRepoPkg "github.com/fekuna/omnipos-stock-service/internal/transfer/repository"
	trUCPkg "github.com/fekuna/omnipos-stock-service/internal/transfer/usecase"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load() // Load .env file if it exists
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          "json",
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
		logConfig.Encoding = cfg.Logger.Encoding
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Telemetry
	providers, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		Endpoint:       cfg.Telemetry.OTLPEndpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
	})
	if err != nil {
		appLogger.Fatal("Could not initialize telemetry", zap.Error(err))
	}

	// 4. Connect to Database
	db, err := openDatabase(&cfg.Database)
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		appLogger.Fatal("Could not migrate database", zap.Error(err))
	}
	appLogger.Info("Connected to database", zap.String("driver", cfg.Database.Driver))
	txm := database.NewTxManager(db)

	// 5. Initialize Redis. The ledger stays correct without it.
	var stockOpts []stockUCPkg.Option
	if cfg.Redis.Enabled {
		redisClient, err := cache.NewRedisClient(&cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			appLogger.Warn("Could not connect to Redis (locking and search cache disabled)", zap.Error(err))
		} else {
			defer redisClient.Close()
			stockOpts = append(stockOpts, stockUCPkg.WithLocker(redisClient), stockUCPkg.WithSearchCache(redisClient))
			appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))
		}
	}

	// 6. Initialize Repositories
	locRepo := locRepoPkg.NewPGRepository(db)
	mvRepo := mvRepoPkg.NewPGRepository(db)
	alertRepo := alertRepoPkg.NewPGRepository(db)
	stockRepo := stockRepoPkg.NewPGRepository(db)
	trRepo := trRepoPkg.NewPGRepository(db)

	// 7. Initialize UseCases
	policy := retry.Policy{Attempts: cfg.Ledger.MaxRetries, Backoff: cfg.Ledger.RetryBackoff}
	locUC := locUCPkg.NewLocationUseCase(locRepo, txm, appLogger)
	mvUC := mvUCPkg.NewMovementUseCase(mvRepo, appLogger)
	alertUC := alertUCPkg.NewAlertUseCase(alertRepo, cfg.Ledger.LowStockThreshold, appLogger)
	stockUC := stockUCPkg.NewStockUseCase(stockRepo, locUC, mvUC, alertUC, txm, stockUCPkg.Config{
		Retry:          policy,
		LockTTL:        cfg.Ledger.LockTTL,
		SearchCacheTTL: cfg.Ledger.SearchCacheTTL,
	}, appLogger, stockOpts...)
	trUC := trUCPkg.NewTransferUseCase(trRepo, locUC, stockUC, txm, policy, appLogger)

	// 8. Start Workers
	workers, workerCtx := errgroup.WithContext(ctx)
	workers.Go(func() error {
		locReconcilerPkg.NewReconciler(locUC, cfg.Workers.ReconcileInterval, appLogger).Start(workerCtx)
		return nil
	})
	if cfg.Kafka.Enabled {
		kafkaConsumer := broker.NewConsumer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.OrdersTopic,
			GroupID: cfg.Kafka.GroupID,
		})
		defer kafkaConsumer.Close()
		kafkaProducer := broker.NewProducer(&broker.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.AlertsTopic,
		})
		defer kafkaProducer.Close()
		appLogger.Info("Connected to Kafka", zap.Strings("brokers", cfg.Kafka.Brokers),
			zap.String("orders_topic", cfg.Kafka.OrdersTopic), zap.String("alerts_topic", cfg.Kafka.AlertsTopic))

		workers.Go(func() error {
			stockListenerPkg.NewOrderListener(kafkaConsumer, stockUC, appLogger).Start(workerCtx)
			return nil
		})
		workers.Go(func() error {
			alertNotifierPkg.NewNotifier(alertRepo, kafkaProducer, cfg.Workers.NotifyInterval, appLogger).Start(workerCtx)
			return nil
		})
	}

	// 9. Initialize Handlers
	if !logConfig.IsDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(cfg.Telemetry.ServiceName))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1", auth.RequireStore())
	locH.NewLocationHandler(locUC, appLogger).RegisterRoutes(api)
	stockH.NewStockHandler(stockUC, mvH.NewMovementHandler(mvUC, appLogger), appLogger).RegisterRoutes(api)
	trH.NewTransferHandler(trUC, appLogger).RegisterRoutes(api)
	alertH.NewAlertHandler(alertUC, appLogger).RegisterRoutes(api)

	httpServer := &http.Server{
		Addr:              port(cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("failed to serve http", zap.Error(err))
		}
	}()

	// 10. Start gRPC Server (health and reflection)
	lis, err := net.Listen("tcp", port(cfg.Server.GRPCPort))
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}
	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port(cfg.Server.GRPCPort)))
	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	grpcServer.GracefulStop()

	cancel()
	_ = workers.Wait()

	if err := providers.Shutdown(shutdownCtx); err != nil {
		appLogger.Warn("Telemetry shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func openDatabase(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	if cfg.Driver == "sqlite3" {
		return database.NewSQLite(cfg.SQLitePath)
	}
	return database.NewPostgres(&database.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		DBName:          cfg.DBName,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.ConnMaxIdleTime) * time.Second,
	})
}

func port(p string) string {
	if !strings.HasPrefix(p, ":") && !strings.Contains(p, ":") {
		return ":" + p
	}
	return p
}
