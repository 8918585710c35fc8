// Package command provides the urfave/cli command tree of minikv-cli.
//
// One-shot commands (exec, ping, get, set, save) dial the server, send one
// command and print the reply. repl opens an interactive session, bench
// drives a pooled load test, stats reads the admin endpoint and keygen
// prints a snapshot encryption key.
package command
