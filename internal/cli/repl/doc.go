// Package repl provides the interactive mode of minikv-cli.
//
// Each input line is split into arguments (double quotes group words and
// honor Go escapes), sent as one command array and the reply printed with
// the configured formatter. Built-ins: help [prefix], history, exit, quit.
package repl
