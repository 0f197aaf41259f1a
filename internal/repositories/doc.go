// Package repositories provides the persistence layer for resolved matches.
//
// The match cache deduplicates catalog lookups across runs: a query that
// already resolved is answered locally instead of burning a catalog request.
// Cache misses and storage failures are advisory only and must never fail a
// resolution.
package repositories
