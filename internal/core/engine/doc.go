// Package engine executes minikv commands against the in-memory store.
//
// The engine receives one decoded request at a time and always answers
// with a reply message; malformed requests become error replies rather
// than Go errors. Each command runs inside a single store transaction, so
// validation happens before the first write and a failed command leaves
// the keyspace untouched.
//
// Supported commands:
//   - PING, ECHO
//   - SET (EX, PX, EXAT, PXAT), GET, INCR, DECR
//   - EXISTS, DEL, TTL, PTTL, EXPIRE, PERSIST, DBSIZE, KEYS
//   - LPUSH, RPUSH, LRANGE
//   - SAVE
package engine
