// Package reindex rebuilds the vector index from the relational catalog.
//
// A run walks every subject's assets, re-embeds all slide chunks plus the
// notes chunks of each asset's latest notes version, and upserts the
// resulting points in batches with retry and progress reporting. Point ids
// are deterministic, so a run overwrites points in place and can be repeated
// safely after an embedding model change or a collection rebuild.
package reindex
