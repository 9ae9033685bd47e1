// Package harness runs conformance scenarios: YAML files that describe a
// seeded simulation run and assert on the resulting events, metrics, dials,
// and proposals. Golden files pin the structural event trace so any change
// to the deterministic stream is caught as a regression.
package harness
