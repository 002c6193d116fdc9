package redisstore

// Config controls where entity state is kept. Every entity is a hash at
// KeyPrefix+id with the state name in StateField.
type Config struct {
	KeyPrefix  string `env:"STATE_REDIS_KEY_PREFIX" envDefault:"statepersist:entity:"`
	StateField string `env:"STATE_REDIS_FIELD" envDefault:"state"`
}

// DefaultConfig returns the configuration used when none is loaded from the environment.
func DefaultConfig() Config {
	return Config{
		KeyPrefix:  "statepersist:entity:",
		StateField: "state",
	}
}
