// Package storage is the durable queue of scheduled messages.
//
// Every operation is a single autocommit statement, so concurrent callers
// (web handlers, the dispatch tick) never need an application-level lock:
//   - Enqueue inserts one row and returns its assigned id
//   - ListPending / ListDue read the latest committed state, ordered by send_time
//   - Delete is idempotent
package storage
