// Package storage provides the snapshot sinks used by the SAVE command.
//
// A sink receives a full copy of the keyspace and persists it. Two backends
// are available:
//
//   - file: framed snapshot files managed by the snapshot package, with
//     retention and optional encryption
//   - badger: an embedded Badger database holding one generation of keys
//
// Both report a missing snapshot as ErrNoSnapshot so the server can start
// with an empty store.
package storage
