package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/gatepass/internal"
	"github.com/frahmantamala/gatepass/internal/auth"
	authPostgres "github.com/frahmantamala/gatepass/internal/auth/postgres"
	"github.com/frahmantamala/gatepass/internal/cache"
	"github.com/frahmantamala/gatepass/internal/core/events"
	"github.com/frahmantamala/gatepass/internal/gatepass"
	gatepassPostgres "github.com/frahmantamala/gatepass/internal/gatepass/postgres"
	"github.com/frahmantamala/gatepass/internal/metrics"
	"github.com/frahmantamala/gatepass/internal/notification"
	"github.com/frahmantamala/gatepass/internal/user"
	userPostgres "github.com/frahmantamala/gatepass/internal/user/postgres"
	"github.com/frahmantamala/gatepass/pkg/logger"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Dependencies is the object graph shared by the server and the workers.
type Dependencies struct {
	Config     *internal.Config
	Logger     *slog.Logger
	SQL        *sqlx.DB
	DB         *gorm.DB
	Metrics    *metrics.Metrics
	Cache      *cache.Store
	Revoker    auth.Revoker
	EventBus   *events.EventBus
	Dispatcher *notification.Dispatcher
	Users      *user.Service
	GatePasses *gatepass.Service
	Auth       *auth.Service
}

func initializeDependencies() (*Dependencies, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	cfg.Notification.MaxWorkers = getIntFlag(maxWorkers, cfg.Notification.MaxWorkers)
	cfg.Notification.JobQueueSize = getIntFlag(jobQueueSize, cfg.Notification.JobQueueSize)

	logger.Configure(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.LoggerWrapper()

	sqlDB, err := initDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	gdb, err := initGorm(sqlDB)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config:  cfg,
		Logger:  lg,
		SQL:     sqlDB,
		DB:      gdb,
		Metrics: metrics.New(),
		Revoker: auth.NewMemoryRevoker(),
	}

	if cfg.Redis.Enabled {
		client, err := cache.NewRedis(cfg.Redis)
		if err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		deps.Cache = cache.NewStore(client, deps.Metrics)
		deps.Revoker = cache.NewRevoker(client)
		lg.Info("redis enabled", "addr", cfg.Redis.Addr)
	}

	deps.EventBus = events.NewEventBus(lg)
	deps.Dispatcher = notification.NewDispatcher(notification.Config{
		MaxWorkers:   cfg.Notification.MaxWorkers,
		JobQueueSize: cfg.Notification.JobQueueSize,
	}, notification.NewSender(cfg.Notification, lg), deps.Metrics, lg)

	deps.Users = user.NewService(userPostgres.NewUserRepository(gdb), nil, cfg.Security.BCryptCost, lg)

	opts := []gatepass.Option{gatepass.WithRecorder(deps.Metrics)}
	if deps.Cache != nil {
		opts = append(opts, gatepass.WithCache(deps.Cache, cfg.Redis.ApprovedTTL))
	}
	deps.GatePasses = gatepass.NewService(gatepassPostgres.NewGatePassRepository(gdb), deps.Users, deps.EventBus, lg, opts...)
	deps.Users.SetAssociationChecker(deps.GatePasses)

	deps.Auth = auth.NewService(
		authPostgres.NewRepository(gdb),
		auth.NewJWTTokenGenerator(cfg.Security),
		deps.Revoker,
		cfg.Security.BCryptCost,
		lg,
	)

	notification.NewEventHandler(deps.Users, deps.Dispatcher, lg).RegisterEventHandlers(deps.EventBus)

	return deps, nil
}

// Close delivers the notifications raised by in-flight events, then releases connections.
func (d *Dependencies) Close(ctx context.Context) error {
	stopErr := d.Dispatcher.Stop(ctx, d.EventBus)
	if stopErr != nil {
		d.Logger.Warn("notifications still queued at shutdown", "error", stopErr)
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			d.Logger.Error("redis close error", "error", err)
		}
	}
	if err := d.SQL.Close(); err != nil {
		d.Logger.Error("database close error", "error", err)
	}
	return stopErr
}

func (d *Dependencies) closeWithTimeout(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	_ = d.Close(ctx)
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx pool with gorm so both see the same limits.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}
