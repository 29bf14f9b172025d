// Package bootstrap assembles infrastructure from configuration for the
// server and CLI entry points.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"eduhub/internal/credential/ledger"
	"eduhub/internal/platform/config"
	"eduhub/internal/platform/database"
	"eduhub/internal/platform/health"
	"eduhub/internal/platform/objectstore"
	"eduhub/internal/platform/redis"
	"eduhub/migrations"
)

// LedgerBackend is an opened claim ledger plus the hooks the process needs
// around it. Health and RecordStats are nil when the backend has none.
type LedgerBackend struct {
	Ledger      ledger.Ledger
	Name        string
	Health      health.CheckFunc
	RecordStats func()
	Close       func() error
}

// OpenLedger connects the backend named by cfg.Backend. The Postgres schema
// is migrated on open.
func OpenLedger(ctx context.Context, cfg config.Ledger, reg prometheus.Registerer, logger *slog.Logger) (*LedgerBackend, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.LedgerMemory, "":
		return &LedgerBackend{Ledger: ledger.NewMemory(), Name: config.LedgerMemory, Close: noop}, nil

	case config.LedgerFile:
		l, err := ledger.NewFile(cfg.Dir, cfg.Key, logger)
		if err != nil {
			return nil, err
		}
		return &LedgerBackend{Ledger: l, Name: config.LedgerFile, Close: noop}, nil

	case config.LedgerS3:
		client, err := objectstore.New(ctx, objectstore.Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return &LedgerBackend{
			Ledger: ledger.NewS3(client, cfg.Key, logger),
			Name:   config.LedgerS3,
			Health: client.Health,
			Close:  noop,
		}, nil

	case config.LedgerRedis:
		client, err := redis.New(ctx, redis.DefaultConfig(cfg.RedisURL), reg)
		if err != nil {
			return nil, err
		}
		return &LedgerBackend{
			Ledger:      ledger.NewRedis(client.Client, cfg.Key),
			Name:        config.LedgerRedis,
			Health:      client.Health,
			RecordStats: client.RecordPoolStats,
			Close:       client.Close,
		}, nil

	case config.LedgerPostgres:
		pool, err := database.New(ctx, database.DefaultConfig(cfg.DatabaseURL), reg)
		if err != nil {
			return nil, err
		}
		if err := migrations.Up(ctx, pool.DB()); err != nil {
			pool.Close() //nolint:errcheck // best-effort cleanup on init failure
			return nil, err
		}
		return &LedgerBackend{
			Ledger:      ledger.NewPostgres(pool.DB()),
			Name:        config.LedgerPostgres,
			Health:      pool.Health,
			RecordStats: func() { pool.RecordPoolStats() },
			Close:       pool.Close,
		}, nil
	}
	return nil, fmt.Errorf("unknown ledger backend %q", cfg.Backend)
}
