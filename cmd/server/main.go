package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/mamadbah2/stylishcuts/internal/config"
	"github.com/mamadbah2/stylishcuts/internal/repository/memory"
	"github.com/mamadbah2/stylishcuts/internal/repository/mongodb"
	"github.com/mamadbah2/stylishcuts/internal/repository/postgres"
	"github.com/mamadbah2/stylishcuts/internal/repository/records"
	"github.com/mamadbah2/stylishcuts/internal/repository/redis"
	"github.com/mamadbah2/stylishcuts/internal/repository/sheets"
	"github.com/mamadbah2/stylishcuts/internal/scheduler"
	"github.com/mamadbah2/stylishcuts/internal/server/handlers"
	"github.com/mamadbah2/stylishcuts/internal/server/router"
	"github.com/mamadbah2/stylishcuts/internal/server/session"
	"github.com/mamadbah2/stylishcuts/internal/service/export"
	"github.com/mamadbah2/stylishcuts/internal/service/identity"
	reportingsvc "github.com/mamadbah2/stylishcuts/internal/service/reporting"
	"github.com/mamadbah2/stylishcuts/internal/service/viewrouter"
	identityclient "github.com/mamadbah2/stylishcuts/pkg/clients/identity"
	whatsappclient "github.com/mamadbah2/stylishcuts/pkg/clients/whatsapp"
	"github.com/mamadbah2/stylishcuts/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.Server.Env))
	defer func() { _ = baseLogger.Sync() }()

	zap.ReplaceGlobals(baseLogger)

	loc, err := cfg.Location()
	if err != nil {
		baseLogger.Fatal("invalid reporting timezone", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mongoClient *mongo.Client
	if cfg.Store.Backend == config.BackendMongoDB || cfg.Reporting.ArchiveMongoDB {
		mongoClient, err = mongodb.Connect(ctx, cfg.MongoDB.URI)
		if err != nil {
			baseLogger.Fatal("failed to connect to mongodb", zap.Error(err))
		}
		defer func() {
			if err := mongoClient.Disconnect(context.Background()); err != nil {
				baseLogger.Error("failed to close mongodb connection", zap.Error(err))
			}
		}()
	}

	backend, closeBackend, err := openBackend(ctx, cfg, mongoClient, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to open record store", zap.Error(err), zap.String("backend", cfg.Store.Backend))
	}
	defer closeBackend()

	store := records.NewAdapter(backend, baseLogger.Named("repo.records"))

	provider, err := identityProvider(cfg.Auth)
	if err != nil {
		baseLogger.Fatal("failed to init identity provider", zap.Error(err))
	}

	sessions := session.NewManager(store, provider, viewrouter.Config{
		AdminPath:       cfg.Server.AdminPath,
		WelcomeDuration: cfg.Server.WelcomeDuration,
	}, baseLogger.Named("sessions"),
		session.WithTTL(cfg.Server.SessionTTL),
		session.WithDashboardIdle(cfg.Server.DashboardIdle),
		session.WithMaxWorkspaces(cfg.Server.MaxSessions))
	defer sessions.Close()

	exporter := export.New(cfg.Shop.Name, baseLogger.Named("svc.export"))
	handler := handlers.New(handlers.Config{
		Shop:         cfg.Shop.Name,
		Branch:       cfg.Shop.Branch,
		AdminPath:    cfg.Server.AdminPath,
		SecureCookie: cfg.Server.Env == "production",
	}, sessions, store, exporter, baseLogger.Named("handlers"))

	engine, err := router.New(handler, router.Config{
		AdminPath:          cfg.Server.AdminPath,
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}, baseLogger.Named("router"))
	if err != nil {
		baseLogger.Fatal("failed to init router", zap.Error(err))
	}

	reportingSvc := reportingsvc.NewService(store, loc, baseLogger.Named("svc.reporting"))
	if cfg.Reporting.ArchiveMongoDB {
		reportingSvc.AddSink("mongodb", mongodb.NewReportRepository(mongoClient, cfg.MongoDB.DBName))
	}
	if cfg.Sheets.Enabled() {
		sheetsRepo, err := sheets.NewGoogleSheetRepository(ctx, cfg.Sheets, baseLogger.Named("repo.sheets"))
		if err != nil {
			baseLogger.Fatal("failed to init sheets repository", zap.Error(err))
		}
		reportingSvc.AddSink("sheets", sheetsRepo)
	}
	if cfg.WhatsApp.Enabled() {
		whatsClient := whatsappclient.NewClient(cfg.WhatsApp)
		reportingSvc.SetNotifier(reportingsvc.NewWhatsAppNotifier(whatsClient, cfg.WhatsApp.OwnerID, cfg.Shop.Name))
		baseLogger.Info("whatsapp close-out notifications enabled")
	}

	sched := scheduler.NewScheduler(loc, reportingSvc, sessions, baseLogger.Named("scheduler"))
	if err := sched.Start(cfg.Reporting.CronSchedule); err != nil {
		baseLogger.Fatal("failed to start scheduler", zap.Error(err))
	}
	defer sched.Stop()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // /events streams for as long as the page is open
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		baseLogger.Info("server starting",
			zap.String("port", cfg.Server.Port),
			zap.String("backend", cfg.Store.Backend),
			zap.String("auth", cfg.Auth.Provider))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			baseLogger.Fatal("http server crashed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	baseLogger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		baseLogger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func openBackend(ctx context.Context, cfg *config.Config, mongoClient *mongo.Client, log *zap.Logger) (records.Backend, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMongoDB:
		store := mongodb.NewStore(mongoClient, cfg.MongoDB.DBName, cfg.MongoDB.PollInterval, log.Named("repo.mongodb"))
		store.Start(ctx)
		return store, store.Close, nil
	case config.BackendRedis:
		store, err := redis.Connect(ctx, cfg.Redis.URL, cfg.Redis.Prefix, log.Named("repo.redis"))
		if err != nil {
			return nil, nil, err
		}
		store.Start(ctx)
		return store, func() {
			if err := store.Close(); err != nil {
				log.Error("failed to close redis connection", zap.Error(err))
			}
		}, nil
	case config.BackendPostgres:
		store, err := postgres.Connect(ctx, cfg.Postgres.DatabaseURL, log.Named("repo.postgres"))
		if err != nil {
			return nil, nil, err
		}
		store.Start(ctx)
		return store, store.Close, nil
	default:
		log.Warn("using in-memory record store, records are lost on restart")
		store := memory.New(log.Named("repo.memory"))
		return store, store.Close, nil
	}
}

func identityProvider(cfg config.AuthConfig) (identity.Provider, error) {
	if cfg.Provider == config.AuthFirebase {
		return identity.NewFirebaseProvider(identityclient.NewClient(cfg)), nil
	}
	return identity.NewStaticProvider(cfg.AdminEmail, cfg.AdminPasswordHash)
}
