package storage

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fluxCapacitor/internal/storage/mongo"
	"fluxCapacitor/internal/storage/mysql"
	"fluxCapacitor/internal/storage/postgres"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongodb"
	DriverMySQL    = "mysql"
	DriverJSONL    = "jsonl"
)

// Config selects and configures the allow-list backend.
type Config struct {
	Driver       string
	DSN          string
	Database     string
	MaxRetries   int
	RetryBackoff time.Duration
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Open connects to the configured backend and verifies it is reachable,
// retrying the connectivity check with exponential backoff.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (AllowListStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		store AllowListStore
		err   error
	)
	switch cfg.Driver {
	case DriverPostgres:
		store, err = postgres.NewStore(ctx, cfg.DSN)
	case DriverMongo:
		store, err = mongo.NewStore(ctx, cfg.DSN, cfg.Database)
	case DriverMySQL:
		store, err = mysql.NewStore(cfg.DSN)
	case DriverJSONL:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("jsonl store path is required")
		}
		return NewJsonlStore(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Driver, err)
	}

	if p, ok := store.(pinger); ok {
		err = withRetry(ctx, cfg.MaxRetries, cfg.RetryBackoff, func(ctx context.Context) error {
			err := p.Ping(ctx)
			if err != nil {
				logger.Warn("store ping failed", zap.String("driver", cfg.Driver), zap.Error(err))
			}
			return err
		})
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("connect %s store: %w", cfg.Driver, err)
		}
	}

	logger.Info("store connected", zap.String("driver", cfg.Driver))
	return store, nil
}
