// Package memory holds the consolidated knowledge base: one versioned
// document of titled sections per (project, category) pair.
//
// The Store interface is the only shared mutable resource in the SDK.
// Its Update method serializes mutations per pair with a keyed lock, so
// concurrent consolidation runs cannot lose an update; every mutation
// is additive and bumps both the section's and the memory's version.
//
// Implementations:
//   - InMemoryStore: process-local, for development and tests
//   - store/sqlite: durable, for real deployments
package memory
