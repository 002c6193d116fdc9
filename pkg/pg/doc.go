// Package pg provides utilities for interacting with PostgreSQL using the
// pgx/v5 driver: connection pooling with retries, goose migrations, health
// checks and error classifiers.
//
// # Architecture
//
//   - Config – a declarative struct whose fields are populated from
//     environment variables via github.com/caarlos0/env. It controls
//     connection pool limits, health-check cadence and migration paths.
//
//   - Connect – opens a *pgxpool.Pool based on Config, retrying with a
//     growing pause until the database becomes available or ctx is done.
//
//   - Migrate / MigrateFS – run goose migrations from disk or from an
//     embedded file system against the same pool.
//
// # Usage
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer pool.Close()
//
//	cfg.MigrationsPath = "migrations"
//	if err := pg.MigrateFS(ctx, pool, pgstore.Migrations, cfg, slog.Default()); err != nil {
//	    return err
//	}
//
// # Error Handling
//
// IsNotFoundError, IsDuplicateKeyError, IsForeignKeyViolationError and
// IsSerializationFailure unwrap errors returned by pgx and *pgconn.PgError so
// callers can classify failures without importing the driver.
package pg
