// Package store provides a SQLite-backed cache of generated decoder programs.
//
// The store keeps two tables:
//   - Compilations: rendered source and declaration catalog, keyed by
//     ir.ModuleHash of the module source, top format and package name
//   - Runs: one row per compile request, with a UUIDv7 and a logical
//     sequence number, recording whether the cache answered it
//
// # Ordering
//
// All listings use the seq column (a logical clock), never timestamps,
// so the output of `bingen cache list` is reproducible:
//
//	ORDER BY seq ASC, id COLLATE BINARY ASC
//
// # Key Format
//
// The cache_meta table records the hash domains (ir.DomainModule and
// ir.DomainProgram) the rows were written under. Opening a cache written
// under other domains empties it, since its keys and programs no longer
// correspond to what the generator would produce.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Runs are deleted with their compilation
package store
