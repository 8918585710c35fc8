// Package redisserver serves the RESP protocol over TCP.
//
// Each accepted connection gets one goroutine. A request is expected to
// arrive in a single read: the chunk is decoded with resp.Decode, executed
// and the reply written back. A chunk that does not decode is answered with
// "-ERR unknown command" and the connection stays open. QUIT replies +OK
// and closes the connection.
package redisserver
