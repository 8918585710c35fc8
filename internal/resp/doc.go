// Package resp implements the RESP2 wire codec used by minikv.
//
// Five frame types are supported: simple strings (+), errors (-),
// integers (:), bulk strings ($, including the $-1 null form) and arrays (*).
// Every line is CRLF terminated. Bulk payloads and status lines must be
// valid UTF-8; values are kept as text throughout the server.
//
// Decode works on a complete in-memory buffer and rejects trailing bytes.
// Next decodes a single frame and returns the unconsumed tail, which is
// how arrays thread the cursor through their elements. Reader decodes
// frames from a buffered stream and is what clients use to read replies.
package resp
