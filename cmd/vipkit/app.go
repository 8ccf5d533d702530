package main

import (
	"context"
	"fmt"

	"github.com/PaulFidika/vipkit/config"
	"github.com/PaulFidika/vipkit/entitlements"
	"github.com/PaulFidika/vipkit/identity"
	"github.com/PaulFidika/vipkit/logging"
	memorystore "github.com/PaulFidika/vipkit/storage/memory"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// schema holds the users and payment_receipts tables.
const schema = "vipkit"

// userStore is what both the Postgres and the in-memory store provide.
type userStore interface {
	identity.Users
	entitlements.Store
	GetByEmail(ctx context.Context, email string) (*entitlements.Record, error)
}

// app holds the process-wide dependencies shared by every command.
type app struct {
	cfg   *config.Config
	log   *logrus.Logger
	pool  *pgxpool.Pool
	rdb   redis.UniversalClient
	users userStore
	vip   *entitlements.Service
}

// newApp loads configuration and connects to Postgres and Redis when they are
// configured. Without DATABASE_URL users live in memory.
func newApp(ctx context.Context, needDB bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if needDB {
		if err := cfg.RequireDatabase(); err != nil {
			return nil, err
		}
	}
	a := &app{cfg: cfg, log: logging.New(cfg.LogLevel, cfg.LogFormat)}

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		a.pool = pool
		a.users = identity.NewStore(pool, schema)
	} else {
		a.log.Warn("DATABASE_URL not set; users are kept in memory and lost on restart")
		a.users = memorystore.NewUsers()
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(opts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			a.close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
		a.rdb = rdb
	}

	a.vip = entitlements.NewService(a.users, entitlements.WithLogger(a.log))
	return a, nil
}

func (a *app) close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
