package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a driver.
type Options struct {
	Driver      string `yaml:"driver"`
	Dir         string `yaml:"dir"`
	SQLitePath  string `yaml:"sqlite_path"`
	DatabaseURL string `yaml:"database_url"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPrefix string `yaml:"redis_prefix"`

	Chaos ChaosOptions `yaml:"chaos"`
}

// Open builds the Store named by opts.Driver. SQL drivers get their schema
// created on the way. Enabled chaos options wrap the result in a Chaos store.
func Open(ctx context.Context, opts Options) (Store, error) {
	s, err := openDriver(ctx, opts)
	if err != nil {
		return nil, err
	}
	if opts.Chaos.Enabled() {
		return NewChaos(s, opts.Chaos), nil
	}
	return s, nil
}

func openDriver(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile, "":
		return NewFile(opts.Dir)
	case DriverSQLite:
		if err := os.MkdirAll(filepath.Dir(opts.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		return openSQL(ctx, "sqlite", opts.SQLitePath, SQLite)
	case DriverPostgres:
		return openSQL(ctx, "postgres", opts.DatabaseURL, Postgres)
	case DriverRedis:
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func openSQL(ctx context.Context, driverName, dsn string, dialect Dialect) (*SQL, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to %s: %w", driverName, err)
	}
	if dialect == SQLite {
		// one writer at a time keeps modernc from returning SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	store, err := NewSQL(db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}
