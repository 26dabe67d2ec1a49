// Package store is the BoltDB-backed audit journal: every configuration
// update attempt and every circuit breaker transition is appended here so
// operators can reconstruct what happened after the fact.
//
// Records are keyed by timestamp, so Bolt's natural key ordering gives
// chronological scans without a secondary index. Listing walks the cursor
// backwards for newest-first output. The journal is append-only in normal
// operation; Prune trims old entries when the history grows unbounded.
package store
