// Package domain defines the error vocabulary of the minikv command engine.
//
// Every failure a client can observe is a DomainError with a stable code.
// The code groups errors for metrics and logs; the message is what the
// client sees after the "ERR " prefix.
//
// Code families:
//
//   - KV-CMD: unknown or malformed commands
//   - KV-ARG: wrong arguments or options
//   - KV-KEY: missing or expired keys
//   - KV-VAL: stored value has the wrong shape
//   - KV-SNAP: snapshot sink failures
//   - KV-SYS: internal and rate-limit errors
package domain
