// Package config loads application configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11:
//
//   - LoadEnv reads one or more .env files, or .env in the working directory.
//   - Load parses the environment into any struct annotated with `env` tags
//     and caches the result per type, so repeated calls are cheap.
//   - MustLoad and MustLoadEnv panic instead of returning an error.
//   - ResetCache and ForceReloadConfig discard cached values, mostly in tests.
//
// # Usage
//
//	type StoreConfig struct {
//	    Driver  string `env:"STATE_DRIVER" envDefault:"memory"`
//	    Workers int    `env:"STATE_WORKERS" envDefault:"8"`
//	}
//
//	func main() {
//	    if err := config.LoadEnv("./deploy/.env"); err != nil {
//	        log.Fatalf("loading env: %v", err)
//	    }
//
//	    var cfg StoreConfig
//	    config.MustLoad(&cfg)
//	}
//
// Connection settings of the storage helpers (pg.Config, redis.Config,
// mongo.Config) and the store layouts (pgstore.Config and friends) carry env
// tags and load the same way.
//
// # Error Handling
//
// The package defines sentinel errors that can be compared with errors.Is:
//
//   - ErrParsingConfig: failed to parse env vars into struct.
//   - ErrInvalidConfigType: the target is not a struct.
//   - ErrConfigNotLoaded: requested config type has not been loaded yet.
//   - ErrNilPointer: nil pointer passed to Load or MustLoad.
//   - ErrLoadingEnvFile: a .env file could not be read.
//
// A failed parse is not cached, so Load can be retried after the environment
// is fixed.
package config
