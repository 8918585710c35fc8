// minikv-cli is the command-line client for minikv-server.
//
// It runs one command and exits, or opens an interactive REPL:
//
//	minikv-cli set greeting hello --ex 60
//	minikv-cli exec LRANGE queue 0 9
//	minikv-cli -o json stats
//	minikv-cli repl
//	minikv-cli bench --command incr -n 100000 -c 50
package main
