// Command server runs the consent and personal-data-lifecycle engine. main
// wires the dependency graph from environment configuration; business logic
// lives in the internal packages.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"sapphire/internal/audit"
	"sapphire/internal/consent"
	"sapphire/internal/deletion"
	"sapphire/internal/export"
	"sapphire/internal/gdpr"
	"sapphire/internal/jwttoken"
	"sapphire/internal/platform/config"
	"sapphire/internal/platform/database"
	"sapphire/internal/platform/httpserver"
	"sapphire/internal/platform/logger"
	"sapphire/internal/platform/metrics"
	"sapphire/internal/platform/middleware"
	"sapphire/internal/platform/privacy"
	"sapphire/internal/platform/redis"
	"sapphire/internal/storage"
	httptransport "sapphire/internal/transport/http"
	"sapphire/internal/userdata"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if err := run(cfg, log); err != nil {
		log.Error("server exited with error", "error", err.Error())
		os.Exit(1)
	}
}

func run(cfg config.Server, log *slog.Logger) error {
	m := metrics.New()
	strategy := privacy.ForName(cfg.AnonymizationStrategy, cfg.AnonymizationKey)

	// Backing stores: in-memory by default, postgres when DATABASE_URL is set,
	// redis deletion jobs when REDIS_URL is set.
	pool, err := database.New(databaseConfig(cfg))
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := redis.New(cfg.RedisURL)
	if err != nil {
		return err
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var (
		runner     storage.Runner
		auditStore audit.Store
		consents   consent.Store
		profiles   userdata.ProfileRepository
		datasets   userdata.DatasetRepository
		grants     userdata.SharingGrantRepository
		dids       userdata.DIDDocumentRepository
		jobs       deletion.JobStore
	)
	if pool != nil {
		db := pool.DB()
		runner = storage.NewPostgresRunner(db)
		auditStore = audit.NewPostgresStore(db)
		consents = consent.NewPostgresStore(db)
		profiles = userdata.NewPostgresProfiles(db)
		datasets = userdata.NewPostgresDatasets(db)
		grants = userdata.NewPostgresGrants(db)
		dids = userdata.NewPostgresDIDDocuments(db)
		jobs = deletion.NewPostgresJobStore(db)
	} else {
		runner = storage.NewMemoryRunner()
		auditStore = audit.NewInMemoryStore()
		consents = consent.NewInMemoryStore()
		profiles = userdata.NewInMemoryProfiles()
		datasets = userdata.NewInMemoryDatasets()
		grants = userdata.NewInMemoryGrants()
		dids = userdata.NewInMemoryDIDDocuments()
		jobs = deletion.NewInMemoryJobStore()
	}
	if redisClient != nil {
		jobs = deletion.NewRedisJobStore(redisClient.Client)
	}

	auditLog := audit.NewLog(auditStore)
	consentSvc := consent.NewService(consents, auditLog, runner)
	exporter := export.NewAggregator(profiles, datasets, grants, dids, consentSvc, auditLog, runner)
	deleter := deletion.NewOrchestrator(jobs, consents, profiles, datasets, grants, dids, auditLog, strategy, log, m)
	service := gdpr.NewService(consentSvc, exporter, deleter, auditLog, log, m)

	jwtService := jwttoken.NewService(cfg.JWTSigningKey, "sapphire")
	metadata := middleware.NewMetadata(middleware.MetadataConfig{
		TrustedProxies: middleware.ParseTrustedProxies(cfg.TrustedProxies),
	})
	handler := httptransport.NewHandler(service, log, m, metadata, jwttoken.NewServiceAdapter(jwtService))

	deps := httptransport.RouterDeps{Handler: handler, Logger: log}
	if pool != nil {
		deps.Database = pool
	}
	if redisClient != nil {
		deps.Redis = redisClient
	}
	router := httptransport.NewRouter(deps)
	srv := httpserver.New(cfg.Addr, router)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting server",
			"addr", cfg.Addr,
			"postgres", pool != nil,
			"redis", redisClient != nil,
			"anonymization_strategy", strategy.Name(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func databaseConfig(cfg config.Server) database.Config {
	dbCfg := database.DefaultConfig()
	dbCfg.URL = cfg.DatabaseURL
	return dbCfg
}
