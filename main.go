package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/db2api/gateway/pkg/adapters/datasource"
	_ "github.com/db2api/gateway/pkg/adapters/datasource/mssql"
	_ "github.com/db2api/gateway/pkg/adapters/datasource/postgres"
	"github.com/db2api/gateway/pkg/auth"
	"github.com/db2api/gateway/pkg/config"
	"github.com/db2api/gateway/pkg/crypto"
	"github.com/db2api/gateway/pkg/database"
	"github.com/db2api/gateway/pkg/graphqlapi"
	"github.com/db2api/gateway/pkg/handlers"
	"github.com/db2api/gateway/pkg/logging"
	"github.com/db2api/gateway/pkg/middleware"
	"github.com/db2api/gateway/pkg/repositories"
	"github.com/db2api/gateway/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.NewLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Host),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrateMetadataStore(cfg, logger); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.URL(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("failed to connect to metadata store", zap.Error(err))
	}
	defer db.Close()

	cipher, err := crypto.NewSecretCipher(cfg.EncryptionSecret)
	if err != nil {
		logger.Fatal("failed to initialize cipher", zap.Error(err))
	}

	cache := datasource.NewResourceCache(datasource.PoolConfig{
		MaxConns: cfg.Datasource.PoolMaxConns,
		MinConns: cfg.Datasource.PoolMinConns,
	}, logger)
	defer func() { _ = cache.Close() }()

	// Repositories.
	connRepo := repositories.NewConnectionRepository(db)
	defRepo := repositories.NewAPIDefinitionRepository(db)
	orgRepo := repositories.NewOrganizationRepository(db)
	clientRepo := repositories.NewClientRepository(db)

	// Services.
	connService := services.NewConnectionService(connRepo, cipher, cache, logger)
	defService := services.NewAPIDefinitionService(defRepo, connRepo, logger)
	introspectService := services.NewIntrospectionService(connService, logger)
	executorService := services.NewQueryExecutorService(connService, logger)
	dispatcherService := services.NewDispatcherService(defService, executorService)
	orgService := services.NewOrganizationService(orgRepo, clientRepo, cipher, logger)
	tokenService := services.NewTokenService(clientRepo, cipher, cfg.Token, logger)

	schemaBuilder, err := graphqlapi.NewSchemaBuilder(defService, introspectService, executorService, logger)
	if err != nil {
		logger.Fatal("failed to initialize graphql schema", zap.Error(err))
	}
	connService.SetRefresher(schemaBuilder)
	defService.SetRefresher(schemaBuilder)

	// Initial schema build is best-effort; definitions pointing at an
	// unreachable database must not block startup.
	if err := schemaBuilder.Refresh(ctx); err != nil {
		logger.Warn("initial schema build failed, serving fallback schema", zap.Error(err))
	}

	verifier := auth.NewVerifier(cfg.Token.SigningSecret, cfg.Token.Issuer)
	requireAuth := auth.Middleware(verifier, logger)

	mux := http.NewServeMux()

	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewTokenHandler(tokenService, logger).RegisterRoutes(mux)
	handlers.NewConnectionHandler(connService, introspectService, logger).RegisterRoutes(mux)
	handlers.NewAPIDefinitionHandler(defService, logger).RegisterRoutes(mux)
	handlers.NewOrganizationHandler(orgService, logger).RegisterRoutes(mux)
	handlers.NewDynamicHandler(dispatcherService, logger).RegisterRoutes(mux, requireAuth)
	handlers.NewGraphQLHandler(schemaBuilder, logger).RegisterRoutes(mux, requireAuth)

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.BindAddr, cfg.Port),
		Handler:           middleware.RequestLogger(logger)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting db2api-gateway",
			zap.String("addr", server.Addr),
			zap.String("version", cfg.Version),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// migrateMetadataStore runs pending migrations over a short-lived
// database/sql connection; the pgx pool is opened afterwards.
func migrateMetadataStore(cfg *config.Config, logger *zap.Logger) error {
	db, err := sql.Open("pgx", cfg.Database.URL())
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	return database.RunMigrations(db, cfg.Database.MigrationsPath, logger)
}
