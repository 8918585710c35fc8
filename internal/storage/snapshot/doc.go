// Package snapshot writes and reads full keyspace dumps on disk.
//
// File layout:
//
//	snapshot-<yyyymmddhhmmss>-<seq>.snap
//	[magic:8 "MINIKVSN"]
//	[HeaderLen:4][HeaderJSON:HeaderLen]
//	[DataLen:4][Data:DataLen]   (JSON key map, or encrypted bytes)
//	[checksum:32 SHA-256 of all bytes above]
//
// Files are written to a temp name and renamed into place, so a crash
// never leaves a half-written snapshot under a final name. Load walks
// snapshots newest first and skips files whose checksum or magic is bad.
//
// Encryption is optional. A raw key is stretched with HKDF; a passphrase
// goes through Argon2id with a fresh salt per snapshot, recorded in the
// header so the same passphrase can open it again.
package snapshot
