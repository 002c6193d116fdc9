package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/statepersist/pkg/config"
	"github.com/dmitrymomot/statepersist/pkg/logger"
	"github.com/dmitrymomot/statepersist/pkg/mongo"
	"github.com/dmitrymomot/statepersist/pkg/persister"
	"github.com/dmitrymomot/statepersist/pkg/persister/mongostore"
	"github.com/dmitrymomot/statepersist/pkg/persister/pgstore"
	"github.com/dmitrymomot/statepersist/pkg/persister/redisstore"
	"github.com/dmitrymomot/statepersist/pkg/pg"
	"github.com/dmitrymomot/statepersist/pkg/redis"
)

const (
	driverMemory   = "memory"
	driverPostgres = "postgres"
	driverRedis    = "redis"
	driverMongo    = "mongo"
)

// entityStore is a persister.Store the demo can seed.
type entityStore interface {
	persister.Store
	Insert(ctx context.Context, id any, state string) error
}

type memoryStore struct {
	*persister.MemoryStore
}

func (s memoryStore) Insert(_ context.Context, id any, state string) error {
	s.MemoryStore.Insert(id, state)
	return nil
}

// openStore connects the configured driver. The returned close function
// releases the connection.
func openStore(ctx context.Context, driver string, log *slog.Logger) (entityStore, func(), error) {
	log = log.With(logger.Driver(driver))

	switch driver {
	case driverMemory:
		return memoryStore{persister.NewMemoryStore()}, func() {}, nil

	case driverPostgres:
		var cfg pg.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		var storeCfg pgstore.Config
		if err := config.Load(&storeCfg); err != nil {
			return nil, nil, err
		}
		pool, err := pg.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		closePool := func() error { pool.Close(); return nil }
		if err := checkHealth(ctx, pg.Healthcheck(pool), closePool, log); err != nil {
			return nil, nil, err
		}
		if err := pg.MigrateFS(ctx, pool, pgstore.Migrations, cfg, log); err != nil {
			pool.Close()
			return nil, nil, err
		}
		store, err := pgstore.New(pool, storeCfg)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case driverRedis:
		var cfg redis.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		var storeCfg redisstore.Config
		if err := config.Load(&storeCfg); err != nil {
			return nil, nil, err
		}
		client, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if err := checkHealth(ctx, redis.Healthcheck(client), client.Close, log); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				log.Warn("failed to close redis client", logger.Error(err))
			}
		}
		store, err := redisstore.New(client, storeCfg)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return store, closeFn, nil

	case driverMongo:
		var cfg mongo.Config
		if err := config.Load(&cfg); err != nil {
			return nil, nil, err
		}
		var storeCfg mongostore.Config
		if err := config.Load(&storeCfg); err != nil {
			return nil, nil, err
		}
		db, err := mongo.NewWithDatabase(ctx, cfg, "")
		if err != nil {
			return nil, nil, err
		}
		disconnect := func() error { return db.Client().Disconnect(context.WithoutCancel(ctx)) }
		if err := checkHealth(ctx, mongo.Healthcheck(db.Client()), disconnect, log); err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := disconnect(); err != nil {
				log.Warn("failed to disconnect mongo client", logger.Error(err))
			}
		}
		store, err := mongostore.New(db, storeCfg)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		return store, closeFn, nil
	}

	return nil, nil, fmt.Errorf("unknown store driver %q", driver)
}

// checkHealth pings the store once. On failure the connection is closed
// and both errors are reported together.
func checkHealth(ctx context.Context, ping func(context.Context) error, closeConn func() error, log *slog.Logger) error {
	if err := ping(ctx); err != nil {
		closeErr := closeConn()
		log.ErrorContext(ctx, "store is not healthy", logger.Errors(err, closeErr))
		return errors.Join(err, closeErr)
	}
	log.DebugContext(ctx, "store is healthy")
	return nil
}
