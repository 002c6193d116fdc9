// Package mongo provides MongoDB connection management.
//
// New connects with the official v2 driver, pings the server and retries on
// failure. Configuration is read from the environment through the env tags on
// Config, and Healthcheck plugs into readiness checks.
//
// # Usage
//
//	cfg := mongo.Config{
//		ConnectionURL: "mongodb://localhost:27017",
//		RetryAttempts: 3,
//		RetryInterval: time.Second,
//	}
//
//	db, err := mongo.NewWithDatabase(ctx, cfg, "statepersist")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer db.Client().Disconnect(context.Background())
//
//	store := mongostore.New(db, mongostore.DefaultConfig())
//
// # Error Handling
//
// Connection failures are joined with ErrFailedToConnectToMongo and the last
// driver error, so both errors.Is checks and the root cause are available.
package mongo
