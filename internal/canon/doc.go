// Package canon provides the deterministic foundations of the steward engine:
// canonical JSON serialization, content-addressed hashing with domain
// separation, and the seeded pseudo-random generator.
//
// Every identity in the system (event IDs, proposal IDs, decision hashes,
// replay report hashes) is derived through this package. Two structurally
// equal values always canonicalize to the same bytes and therefore hash to
// the same ID, regardless of construction order or process lifetime.
package canon
