package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/hirelane/portal/internal/api"
	"github.com/hirelane/portal/internal/api/metrics"
	"github.com/hirelane/portal/internal/core/ports"
	"github.com/hirelane/portal/internal/core/service"
	"github.com/hirelane/portal/internal/infrastructure/config"
	mongodb "github.com/hirelane/portal/internal/infrastructure/db/mongo"
	redisdb "github.com/hirelane/portal/internal/infrastructure/db/redis"
	"github.com/hirelane/portal/internal/infrastructure/queue"
	"github.com/hirelane/portal/internal/infrastructure/tokenstore"
	"github.com/hirelane/portal/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the portal HTTP server",
	Long: `Starts the portal HTTP server. Usage:

	portal serve
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.IsDevelopment(), Service: "portal"})

	// --- Token storage ---
	var (
		storage  ports.TokenStorageProvider
		throttle ports.ResetThrottle
		rdb      *goredis.Client
	)
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rdb, err = redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err != nil {
			return err
		}
		defer rdb.Close()
		storage = redisdb.NewTokenStorage(rdb, cfg.Session.TTL)
		throttle = redisdb.NewResetThrottle(rdb, cfg.Session.ResetThrottleWindow)
	default:
		storage = tokenstore.NewMemory()
	}

	// --- Audit trail ---
	observers := []ports.SessionObserver{metrics.SessionObserver{}}
	var (
		events     ports.SessionEventRepository
		mdb        *mongo.Database
		dispatcher *queue.Dispatcher
	)
	workersCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	if cfg.AuditEnabled() {
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database, AppName: "portal"})
		if err != nil {
			return err
		}
		defer func() { _ = mongodb.Disconnect(client) }()
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			log.Warn().Err(err).Msg("session event index not created")
		}
		mdb = db
		events = mongodb.NewSessionEventRepository(db)
		dispatcher = queue.NewDispatcher(0, events, logger.Component("audit"))
		dispatcher.Start(workersCtx)
		observers = append(observers, dispatcher)
	}

	// --- Tabs ---
	binder, err := newBinder(cfg)
	if err != nil {
		return err
	}
	registry := service.NewRegistry(service.RegistryConfig{
		Storage:   storage,
		Bind:      binder,
		Throttle:  throttle,
		Observers: observers,
		Logger:    logger.Component("session"),
	})
	if idle := cfg.Session.TabIdleTimeout; idle > 0 {
		go registry.RunSweeper(workersCtx, sweepInterval(idle), idle, func(open int) {
			metrics.OpenTabs.Set(float64(open))
		})
	}

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Tabs:         registry,
		Events:       events,
		Mongo:        mdb,
		Redis:        rdb,
		SecureCookie: cfg.Session.SecureCookie,
		CookieMaxAge: cfg.Session.TTL,
		Log:          logger.Component("http"),
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("session_backend", cfg.Session.Backend).Bool("audit", cfg.AuditEnabled()).Msg("portal listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	registry.Wait()
	stopWorkers()
	if dispatcher != nil {
		dispatcher.Wait()
	}
	return nil
}

// sweepInterval checks twice per idle period, at most once a second.
func sweepInterval(idle time.Duration) time.Duration {
	if half := idle / 2; half > time.Second {
		return half
	}
	return time.Second
}

