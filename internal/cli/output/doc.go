// Package output renders minikv-cli results.
//
// Replies print in the redis-cli layout for the text format and as plain
// values for json and yaml. Other data (bench results, stats) renders as a
// FIELD/VALUE table in text mode.
package output
