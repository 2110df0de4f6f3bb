// Package store provides SQLite-backed persistence for scan runs.
//
// Three tables make up a run:
//   - runs: one row per scan, with its definition, input and final status
//   - transitions: one row per state invocation, keyed by the machine's
//     logical sequence number
//   - items: the captured items in emission order
//
// # Ordering
//
// Every query orders by logical columns (seq, idx) and never by timestamps,
// so a run reads back identically however fast it was written.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - foreign_keys=ON: transitions and items require their run
package store
