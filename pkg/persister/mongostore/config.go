package mongostore

// Config names the collection and the document field holding the state.
// Documents are looked up by _id.
type Config struct {
	Collection string `env:"STATE_COLLECTION" envDefault:"entities"`
	StateField string `env:"STATE_FIELD" envDefault:"state"`
}

// DefaultConfig returns the configuration used when none is loaded from the environment.
func DefaultConfig() Config {
	return Config{
		Collection: "entities",
		StateField: "state",
	}
}
