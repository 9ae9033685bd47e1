// Package store is the durable audit trail: promotion decisions, override
// records, and replay reports persisted to SQLite. The live event log stays
// in memory; only governance artifacts are durable. All inserts are
// idempotent on content-addressed keys, so re-recording an identical
// artifact is a no-op.
package store
