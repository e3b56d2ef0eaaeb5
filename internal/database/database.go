package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"

	"github.com/mkorir/tradebase/internal/config"
	loggerPkg "github.com/mkorir/tradebase/internal/logger"
)

type Database struct {
	Pool *pgxpool.Pool
	log  *zerolog.Logger
}

func New(cfg *config.Config, log *zerolog.Logger, ls *loggerPkg.LoggerService) (*Database, error) {
	connString := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	poolConfig, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = time.Duration(cfg.Database.ConnMaxLifetime) * time.Second
	poolConfig.MaxConnIdleTime = time.Duration(cfg.Database.ConnMaxIdleTime) * time.Second

	pgxLevel := zerolog.WarnLevel
	if !cfg.Observability.IsProduction() {
		pgxLevel = zerolog.DebugLevel
	}
	pgxLogger := loggerPkg.NewPgxLogger(pgxLevel)
	poolConfig.ConnConfig.Tracer = &tracelog.TraceLog{
		Logger:   &queryTracer{log: pgxLogger},
		LogLevel: tracelog.LogLevel(loggerPkg.GetPgxTraceLogLevel(pgxLevel)),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Database.Host).
		Str("database", cfg.Database.Name).
		Msg("Connected to Postgres successfully")

	return &Database{
		Pool: pool,
		log:  log,
	}, nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
}

func (d *Database) Close() {
	d.log.Info().Msg("Closing database connection pool")
	d.Pool.Close()
}

// queryTracer adapts zerolog to pgx's tracelog interface.
type queryTracer struct {
	log zerolog.Logger
}

func (t *queryTracer) Log(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
	var event *zerolog.Event
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		event = t.log.Debug()
	case tracelog.LogLevelInfo:
		event = t.log.Info()
	case tracelog.LogLevelWarn:
		event = t.log.Warn()
	case tracelog.LogLevelError:
		event = t.log.Error()
	default:
		return
	}
	for k, v := range data {
		event = event.Interface(k, v)
	}
	event.Msg(msg)
}
