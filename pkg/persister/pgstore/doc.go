// Package pgstore stores entity state in a PostgreSQL table through pgx.
//
// A transition is one statement:
//
//	UPDATE entities SET state = $1
//	WHERE id = $2 AND (state = $3 OR ($4::boolean AND state IS NULL))
//
// where $4 is true only when the expected state is the start state. The row
// count reported by the command tag tells the persister whether it won.
// Concurrent transitions on the same row are serialized by the row lock
// PostgreSQL takes for the UPDATE; the loser re-evaluates the WHERE clause
// against the committed row and affects nothing.
//
// Pass a *pgxpool.Pool to New for autocommit statements, or attach a
// transaction to the context with WithTx (or run inside InTx) to make the
// state change part of a larger unit of work.
package pgstore
