// Package connection provides the transports used by minikv-cli.
//
// Client speaks RESP over one TCP (or TLS) connection. Pool keeps a set of
// Clients for the bench command. HTTPClient talks to the admin endpoint.
package connection
