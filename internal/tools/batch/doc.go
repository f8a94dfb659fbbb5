// Package batch runs a tool operation over several thread IDs.
//
// It parses ID parameters that may be a single value, an array or a JSON
// encoded array, runs the operation with bounded concurrency and reports
// partial failures in one aggregated result.
package batch
