// Package stats aggregates per-sender message counts into contiguous,
// gap-free time buckets.
//
// A Query is validated at construction: callers cannot build one with an
// inverted range, an unknown period or more than MaxBuckets buckets.
// Aggregator issues exactly one analytics call per query and zero-fills
// every period the backend did not report.
package stats
