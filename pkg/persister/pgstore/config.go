package pgstore

// Config names the table and columns holding entity state. Names are quoted
// as identifiers; a schema-qualified table is written as "schema.table".
type Config struct {
	Table       string `env:"STATE_TABLE" envDefault:"entities"`
	IDColumn    string `env:"STATE_ID_COLUMN" envDefault:"id"`
	StateColumn string `env:"STATE_COLUMN" envDefault:"state"`
}

// DefaultConfig matches the table created by Migrations.
func DefaultConfig() Config {
	return Config{
		Table:       "entities",
		IDColumn:    "id",
		StateColumn: "state",
	}
}
