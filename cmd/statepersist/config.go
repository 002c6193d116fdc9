package main

import (
	"time"

	"github.com/dmitrymomot/statepersist/pkg/logger"
)

type appConfig struct {
	// Driver selects the store: memory, postgres, redis or mongo.
	Driver string `env:"STATE_DRIVER" envDefault:"memory"`
	// Workflow is a YAML workflow file; the bundled order workflow is used when empty.
	Workflow      string        `env:"STATE_WORKFLOW"`
	Orders        int           `env:"STATE_ORDERS" envDefault:"3"`
	Workers       int           `env:"STATE_WORKERS" envDefault:"4"`
	RetryAttempts int           `env:"STATE_RETRY_ATTEMPTS" envDefault:"20"`
	RetryInterval time.Duration `env:"STATE_RETRY_INTERVAL" envDefault:"0s"`

	Log logger.Config
}
