package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/memorial-backend/api/routes"
	"github.com/angelmondragon/memorial-backend/internal/auth"
	"github.com/angelmondragon/memorial-backend/internal/billing"
	"github.com/angelmondragon/memorial-backend/internal/interactions"
	"github.com/angelmondragon/memorial-backend/internal/lifecycle"
	"github.com/angelmondragon/memorial-backend/internal/media"
	"github.com/angelmondragon/memorial-backend/internal/memorials"
	"github.com/angelmondragon/memorial-backend/internal/users"
	"github.com/angelmondragon/memorial-backend/pkg/auth/session"
	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/db"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
	"github.com/angelmondragon/memorial-backend/pkg/metrics"
	"github.com/angelmondragon/memorial-backend/pkg/migrate"
	"github.com/angelmondragon/memorial-backend/pkg/qrcode"
	"github.com/angelmondragon/memorial-backend/pkg/redis"
	"github.com/angelmondragon/memorial-backend/pkg/square"
	"github.com/angelmondragon/memorial-backend/pkg/storage"
	"github.com/angelmondragon/memorial-backend/pkg/storage/local"
	"github.com/angelmondragon/memorial-backend/pkg/storage/s3store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	// The server comes up even when the store is down; data routes answer 503
	// and retry preparation on each request until it succeeds.
	readiness := db.NewReadiness(dbClient, migrate.Preparer(cfg, logg, dbClient), cfg.DB.PingTimeout)
	if err := readiness.WaitReady(ctx, cfg.DB.StartupTries, cfg.DB.StartupBackoff); err != nil {
		logg.Warn(logg.WithField(ctx, "error", err.Error()), "database not ready at startup, serving degraded")
	}

	var (
		redisClient *redis.Client
		sessions    session.AccessSessionChecker
		authSession *session.Manager
	)
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		authSession, err = session.NewManager(redisClient, cfg.JWT)
		if err != nil {
			logg.Error(ctx, "failed to create session manager", err)
			os.Exit(1)
		}
		sessions = authSession
	} else {
		logg.Warn(ctx, "redis not configured; sessions, idempotency and rate limits disabled")
	}

	uploads, qrStore, staticDirs, err := buildStores(ctx, cfg)
	if err != nil {
		logg.Error(ctx, "failed to configure media storage", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	engine := lifecycle.NewEngine(cfg.Lifecycle)

	mediaService, err := media.NewService(media.ServiceParams{
		Store:   uploads,
		QR:      qrcode.NewGenerator(qrStore, cfg.Media.QRCodeSizePx),
		Metrics: m,
		Logger:  logg,
		Config:  cfg.Media,
		BaseURL: cfg.App.PublicURL(),
	})
	if err != nil {
		logg.Error(ctx, "failed to create media service", err)
		os.Exit(1)
	}

	memorialRepo := memorials.NewRepository(dbClient.DB())
	memorialService, err := memorials.NewService(memorials.ServiceParams{
		Repo:   memorialRepo,
		Media:  mediaService,
		Engine: engine,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create memorial service", err)
		os.Exit(1)
	}

	interactionService, err := interactions.NewService(interactions.ServiceParams{
		Repo:      interactions.NewRepository(dbClient.DB()),
		Memorials: memorialRepo,
		Metrics:   m,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create interaction service", err)
		os.Exit(1)
	}

	authParams := auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	}
	if authSession != nil {
		authParams.SessionManager = authSession
	}
	authService, err := auth.NewService(authParams)
	if err != nil {
		logg.Error(ctx, "failed to create auth service", err)
		os.Exit(1)
	}

	catalog, err := billing.NewCatalog(cfg.Plans, cfg.Square.Currency)
	if err != nil {
		logg.Error(ctx, "failed to build plan catalog", err)
		os.Exit(1)
	}
	billingParams := billing.ServiceParams{
		DB:      dbClient,
		Catalog: catalog,
		Engine:  engine,
		Metrics: m,
		Logger:  logg,
		BaseURL: cfg.App.PublicURL(),
	}
	if cfg.Square.Enabled() {
		squareClient, err := square.NewClient(ctx, cfg.Square, logg)
		if err != nil {
			logg.Error(ctx, "failed to create square client", err)
			os.Exit(1)
		}
		billingParams.Processor = squareClient
	} else {
		logg.Warn(ctx, "square not configured; plan purchases disabled")
	}
	billingService, err := billing.NewService(billingParams)
	if err != nil {
		logg.Error(ctx, "failed to create billing service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		Readiness:    readiness,
		Redis:        redisClient,
		Sessions:     sessions,
		Metrics:      m,
		Auth:         authService,
		Memorials:    memorialService,
		Interactions: interactionService,
		Music:        mediaService,
		Billing:      billingService,
		StaticDirs:   staticDirs,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(logg.WithField(ctx, "addr", srv.Addr), "starting api server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "server failed", err)
			os.Exit(1)
		}
	case <-ctx.Done():
	}

	logg.Info(context.Background(), "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error(shutdownCtx, "graceful shutdown failed", err)
	}
}

// buildStores returns the upload and QR code stores plus any directories the
// router should serve statically.
func buildStores(ctx context.Context, cfg *config.Config) (storage.Store, storage.Store, map[string]string, error) {
	if cfg.FeatureFlags.UseS3() {
		api, err := s3store.NewClient(ctx, cfg.S3)
		if err != nil {
			return nil, nil, nil, err
		}
		return s3store.New(api, cfg.S3, "uploads"), s3store.New(api, cfg.S3, "qrcodes"), nil, nil
	}

	uploads, err := local.New(cfg.Media.UploadDir, "/uploads")
	if err != nil {
		return nil, nil, nil, err
	}
	qr, err := local.New(cfg.Media.QRCodeDir, "/qrcodes")
	if err != nil {
		return nil, nil, nil, err
	}
	return uploads, qr, map[string]string{
		"/uploads": uploads.Root(),
		"/qrcodes": qr.Root(),
	}, nil
}
