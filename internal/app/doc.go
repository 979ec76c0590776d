// Package app contains the application layer: the transaction executor, the
// polling scheduler and the history log. It orchestrates the codec and the
// transport port but owns no I/O of its own.
//
// Concurrency model: the executor enforces at-most-one outstanding
// transaction per connection, the scheduler loop is the only long-running
// goroutine and the sole writer of statistics, and readers always receive
// copy-on-read snapshots.
package app
