// Package redisstore stores entity state in Redis hashes through go-redis.
//
// Each entity lives at Config.KeyPrefix followed by its identifier. A
// transition runs a Lua script that checks the key exists, compares the
// state field with the expected name (or accepts a missing field when the
// expected state is the start state) and writes the next name. Redis runs
// scripts one at a time, so concurrent transitions on one key cannot
// interleave.
//
//	client, err := redis.Connect(ctx, redisCfg)
//	store := redisstore.MustNew(client, redisstore.DefaultConfig())
//	p, err := persister.New(states, Draft, accessor, store)
package redisstore
