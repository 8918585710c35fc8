// Package memory provides the in-memory key-value store for minikv.
//
// The whole keyspace lives in one map guarded by one mutex. Every command
// runs inside a single Exec call, which makes each command's
// read-modify-write sequence atomic with respect to every other client.
//
// Expiry:
//
// Entries carry an optional absolute expiry in Unix milliseconds. Dead
// entries are never swept in the background; a Tx evicts them when a
// command touches them.
package memory
