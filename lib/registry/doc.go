// Package registry implements the database engine: the map of named
// databases, the permission checks in front of every operation, the
// durable file storage and the time-based invalidation that flushes and
// evicts idle databases.
//
// Databases are resident in memory while in use. A background sweep walks
// all entries on a fixed interval and applies each database's own
// invalidation time: idle dirty databases are written to storage and
// dropped from memory, idle clean ones are dropped directly. The next
// access reloads them transparently. With a nil storage backend the
// registry runs memory-only and never evicts.
package registry
