package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/phrazzld/mentorbook-api/internal/api"
	"github.com/phrazzld/mentorbook-api/internal/api/shared"
	"github.com/phrazzld/mentorbook-api/internal/config"
	"github.com/phrazzld/mentorbook-api/internal/outbox"
	"github.com/phrazzld/mentorbook-api/internal/platform/postgres"
	"github.com/phrazzld/mentorbook-api/internal/platform/redisindex"
	"github.com/phrazzld/mentorbook-api/internal/platform/syncclient"
	"github.com/phrazzld/mentorbook-api/internal/service/auth"
	"github.com/phrazzld/mentorbook-api/internal/service/booking"
	"github.com/phrazzld/mentorbook-api/internal/service/matching"
	"github.com/phrazzld/mentorbook-api/internal/store"
)

// application holds the shared dependencies so they can be shut down together.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	availabilityStore store.AvailabilityStore
	sessionStore      store.SessionStore
	mentorStore       store.MentorStore
	outboxStore       store.OutboxStore

	tokenValidator auth.TokenValidator
	bookingService *booking.Service
	matchService   *matching.Service
	operator       *outbox.Operator

	syncTarget  outbox.SyncTarget
	redisClient *redis.Client
	dispatcher  *outbox.Dispatcher
}

// newApplication wires stores, services and the outbox dispatcher.
// The dispatcher is created but not started.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.tokenValidator, err = auth.NewTokenValidator(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token validator: %w", err)
	}

	app.availabilityStore = postgres.NewPostgresAvailabilityStore(db, logger)
	app.sessionStore = postgres.NewPostgresSessionStore(db, logger)
	app.mentorStore = postgres.NewPostgresMentorStore(db, logger)
	app.outboxStore = postgres.NewPostgresOutboxStore(db, logger)

	app.bookingService, err = booking.NewService(
		cfg.Booking,
		store.NewSQLTxRunner(db),
		app.availabilityStore,
		app.sessionStore,
		app.mentorStore,
		outbox.NewEnqueuer(app.outboxStore, logger),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking service: %w", err)
	}

	app.matchService, err = matching.NewService(app.mentorStore, cfg.Matching, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create matching service: %w", err)
	}

	app.operator = outbox.NewOperator(app.outboxStore, logger)

	if err := app.setupSyncTarget(ctx); err != nil {
		return nil, err
	}
	app.dispatcher = outbox.NewDispatcher(
		app.outboxStore,
		app.syncTarget,
		outbox.DispatcherConfigFrom(cfg.Outbox),
		logger,
	)

	logger.Info("application initialized", slog.String("sync_target", cfg.Sync.Target))
	return app, nil
}

// setupSyncTarget builds the outbox delivery target selected by sync.target.
func (app *application) setupSyncTarget(ctx context.Context) error {
	switch app.config.Sync.Target {
	case config.SyncTargetHTTP:
		client, err := syncclient.New(app.config.Sync.HTTP, app.logger)
		if err != nil {
			return fmt.Errorf("failed to create sync client: %w", err)
		}
		app.syncTarget = client
	case config.SyncTargetRedis:
		client, err := redisindex.NewClient(ctx, app.config.Sync.Redis)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		app.redisClient = client
		app.syncTarget = redisindex.NewTarget(client, app.config.Sync.Redis.KeyPrefix, app.logger)
	case config.SyncTargetLog:
		app.syncTarget = outbox.NewLogTarget(app.logger)
	default:
		return fmt.Errorf("unknown sync target %q", app.config.Sync.Target)
	}
	return nil
}

// router builds the HTTP handler for the application.
func (app *application) router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Booking:        app.bookingService,
		Matching:       app.matchService,
		Outbox:         app.operator,
		TokenValidator: app.tokenValidator,
		AllowedOrigins: app.config.Server.CORSAllowedOrigins,
		Health:         healthHandler(app.db),
		Logger:         app.logger,
	})
}

// Run starts the dispatcher and serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	app.dispatcher.Start()
	defer app.cleanup()

	if err := app.startHTTPServer(ctx, app.router()); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup stops the dispatcher before closing the connections it uses.
func (app *application) cleanup() {
	if app.dispatcher != nil {
		app.dispatcher.Stop()
	}
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", slog.String("error", err.Error()))
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", slog.String("error", err.Error()))
		}
	}
	app.logger.Info("application shutdown completed")
}

// pinger is the part of *sql.DB the health check needs.
type pinger interface {
	PingContext(ctx context.Context) error
}

// healthHandler reports 200 when the database answers a ping within two seconds.
func healthHandler(db pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "database unavailable", err)
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}
}
