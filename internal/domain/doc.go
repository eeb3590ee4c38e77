// Package domain contains the core entities and value objects for the
// edge observation buffer.
//
// This package represents the innermost layer of the architecture. It has
// no dependencies on infrastructure concerns (HTTP, SQLite, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Record]: A buffered observation with its delivery state
//   - [Batch]: An aggregate of records submitted together in one network call
//   - [BufferStats]: Derived counts and size accounting for the store
//   - [StatusSnapshot]: The pull-based observability view of the whole agent
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
