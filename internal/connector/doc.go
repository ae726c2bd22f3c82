// Package connector defines the narrow surface through which the engine talks
// to a storage backend. The interpreter only ever sees a Queryable: either a
// Connection checked out of a Connector's pool or a Transaction started on
// one. Backend-specific APIs never leak past this boundary.
//
// Implementations live in sub-packages: memconnector (in-process, used by
// tests), boltconnector (bbolt file) and sqlconnector (database/sql, MySQL).
package connector
