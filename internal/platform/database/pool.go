package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Config holds database connection configuration.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DefaultConfig returns pool sizes suited to a single ledger table.
func DefaultConfig(url string) Config {
	return Config{
		URL:             url,
		MaxOpenConns:    10,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

type poolMetrics struct {
	openConns  prometheus.Gauge
	inUse      prometheus.Gauge
	idle       prometheus.Gauge
	waitCount  prometheus.Gauge
	waitTimeMs prometheus.Gauge
}

// Pool wraps a *sql.DB opened through the pgx stdlib driver.
type Pool struct {
	db      *sql.DB
	metrics *poolMetrics
}

// New opens and pings the database. Pool gauges are registered on reg when non-nil.
func New(ctx context.Context, cfg Config, reg prometheus.Registerer) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database url is empty")
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w", err)
	}

	p := &Pool{db: db}
	if reg != nil {
		p.metrics = newPoolMetrics(reg)
	}
	return p, nil
}

func newPoolMetrics(reg prometheus.Registerer) *poolMetrics {
	f := promauto.With(reg)
	gauge := func(name, help string) prometheus.Gauge {
		return f.NewGauge(prometheus.GaugeOpts{Name: "eduhub_db_pool_" + name, Help: help})
	}
	return &poolMetrics{
		openConns:  gauge("open_conns", "Established connections, in use and idle"),
		inUse:      gauge("in_use_conns", "Connections currently in use"),
		idle:       gauge("idle_conns", "Idle connections"),
		waitCount:  gauge("wait_count", "Total connections waited for"),
		waitTimeMs: gauge("wait_duration_ms", "Total time blocked waiting for a connection"),
	}
}

// DB returns the underlying *sql.DB.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Health pings the database.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return errors.New("database not configured")
	}
	return p.db.PingContext(ctx)
}

// Close closes the pool. Safe on a nil Pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// RecordPoolStats copies sql.DBStats into the pool gauges. Called by the stats job.
func (p *Pool) RecordPoolStats() sql.DBStats {
	if p == nil || p.db == nil {
		return sql.DBStats{}
	}
	stats := p.db.Stats()
	if p.metrics != nil {
		p.metrics.openConns.Set(float64(stats.OpenConnections))
		p.metrics.inUse.Set(float64(stats.InUse))
		p.metrics.idle.Set(float64(stats.Idle))
		p.metrics.waitCount.Set(float64(stats.WaitCount))
		p.metrics.waitTimeMs.Set(float64(stats.WaitDuration.Milliseconds()))
	}
	return stats
}
