package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"tablebook/internal/shared/config"
	applog "tablebook/pkg/logger"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the form_responses/staff store and the Redis instance used for
// wizard sessions, the submission backup and rate limiting.
type DB struct {
	PostgreSQL *gorm.DB
	Redis      *redis.Client
}

// Health is the per-backend result of HealthCheck
type Health struct {
	PostgreSQL string `json:"postgresql"`
	Redis      string `json:"redis"`
}

// InitDB connects to PostgreSQL and Redis, retrying while they start up, and
// runs the migrations.
func InitDB(cfg *config.Config) (*DB, error) {
	pg, err := withRetry(cfg.Database, "PostgreSQL", func() (*gorm.DB, error) {
		return openPostgreSQL(cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	if err := Migrate(pg); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	rdb, err := withRetry(cfg.Database, "Redis", func() (*redis.Client, error) {
		return openRedis(cfg.Redis)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	return &DB{PostgreSQL: pg, Redis: rdb}, nil
}

// withRetry calls open up to ConnectRetries+1 times
func withRetry[T any](cfg config.DatabaseConfig, name string, open func() (T, error)) (T, error) {
	var (
		conn T
		err  error
	)
	for attempt := 0; attempt <= cfg.ConnectRetries; attempt++ {
		if attempt > 0 {
			applog.GetDefault().Warn("Retrying connection",
				slog.String("backend", name),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
			time.Sleep(cfg.ConnectRetryDelay)
		}
		if conn, err = open(); err == nil {
			return conn, nil
		}
	}
	return conn, err
}

func openPostgreSQL(cfg *config.Config) (*gorm.DB, error) {
	level := logger.Silent
	if cfg.IsDevelopment() {
		level = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{
		Logger: logger.New(slogWriter{}, logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:                              true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	applog.GetDefault().Info("PostgreSQL connected",
		slog.String("host", cfg.Database.Host),
		slog.String("db", cfg.Database.Name))
	return db, nil
}

func openRedis(cfg config.RedisConfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.PoolSize / 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	applog.GetDefault().Info("Redis connected", slog.String("addr", cfg.Addr))
	return rdb, nil
}

// slogWriter sends gorm's trace lines to the default logger
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...interface{}) {
	applog.GetDefault().Debug(fmt.Sprintf(format, args...), slog.String("component", "gorm"))
}

// Close closes both connections
func (db *DB) Close() error {
	var errs []error

	if db.PostgreSQL != nil {
		if sqlDB, err := db.PostgreSQL.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close PostgreSQL: %w", err))
			}
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close Redis: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	applog.GetDefault().Info("Database connections closed")
	return nil
}

// HealthCheck pings both backends. The returned error joins every failure;
// Health reports each backend either way.
func (db *DB) HealthCheck(ctx context.Context) (Health, error) {
	health := Health{PostgreSQL: "up", Redis: "up"}
	var errs []error

	if err := db.pingPostgreSQL(ctx); err != nil {
		health.PostgreSQL = "down"
		errs = append(errs, fmt.Errorf("PostgreSQL: %w", err))
	}
	if db.Redis == nil {
		health.Redis = "down"
		errs = append(errs, errors.New("redis: not connected"))
	} else if err := db.Redis.Ping(ctx).Err(); err != nil {
		health.Redis = "down"
		errs = append(errs, fmt.Errorf("redis: %w", err))
	}

	return health, errors.Join(errs...)
}

func (db *DB) pingPostgreSQL(ctx context.Context) error {
	if db.PostgreSQL == nil {
		return errors.New("not connected")
	}
	sqlDB, err := db.PostgreSQL.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// GetRedisClient returns the Redis client
func (db *DB) GetRedisClient() *redis.Client {
	return db.Redis
}

// GetPostgreSQL returns the PostgreSQL GORM instance
func (db *DB) GetPostgreSQL() *gorm.DB {
	return db.PostgreSQL
}
