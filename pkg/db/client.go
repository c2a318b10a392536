package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/memorial-backend/pkg/config"
	"github.com/angelmondragon/memorial-backend/pkg/logger"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite3"
)

// Client owns the shared GORM connection pool.
type Client struct {
	conn         *gorm.DB
	dialect      string
	queryTimeout time.Duration
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// New prepares the pool without dialing, so the process can start while the
// database is still unreachable. Readiness reports when it comes up.
func New(ctx context.Context, cfg config.DBConfig, flags config.FeatureFlagsConfig, logg *logger.Logger) (*Client, error) {
	var (
		dialector gorm.Dialector
		dialect   string
	)
	switch {
	case flags.UseSQLite:
		path := cfg.SQLitePath
		if path == "" {
			path = "memorial.db"
		}
		dialector, dialect = sqlite.Open(path+"?_foreign_keys=on"), DialectSQLite
	case cfg.DSN == "":
		return nil, errors.New("database DSN is required")
	default:
		dialector = postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
		dialect = DialectPostgres
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 newGormLogger(logg, cfg.SlowQuery),
		SkipDefaultTransaction: true,
		DisableAutomaticPing:   true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}
	if err := registerStatementDeadline(conn, cfg.QueryTimeout); err != nil {
		return nil, err
	}

	pool, err := conn.DB()
	if err != nil {
		return nil, err
	}
	tunePool(pool, cfg)

	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{
			"dialect":        dialect,
			"max_open_conns": cfg.MaxOpenConns,
		}), "database pool configured")
	}
	return &Client{conn: conn, dialect: dialect, queryTimeout: cfg.QueryTimeout}, nil
}

// NewFromGorm wraps an existing connection for tests and tooling.
func NewFromGorm(conn *gorm.DB, dialect string) *Client {
	return &Client{conn: conn, dialect: dialect}
}

// tunePool leaves database/sql defaults in place for zero values.
func tunePool(pool *sql.DB, cfg config.DBConfig) {
	if cfg.MaxOpenConns > 0 {
		pool.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		pool.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (c *Client) DB() *gorm.DB { return c.conn }

func (c *Client) SQL() (*sql.DB, error) { return c.conn.DB() }

// Dialect is the goose dialect name for this connection.
func (c *Client) Dialect() string { return c.dialect }

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// Bounded limits ctx by the configured query timeout, if any. Single
// statements are already bounded; this covers a transaction as a whole.
func (c *Client) Bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.queryTimeout)
}

// WithTx runs fn in a bounded transaction. An error or panic from fn rolls
// back; the panic is re-raised.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	ctx, cancel := c.Bounded(ctx)
	defer cancel()
	return c.conn.WithContext(ctx).Transaction(fn)
}
