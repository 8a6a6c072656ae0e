// Package domain contains the core data model of the engine: flow and step
// definitions, structured instructions, flow instances, the conversation
// snapshot, and the delta type used to describe state changes.
//
// Nothing in this package performs I/O or holds mutable global state. A
// Snapshot is a pure value the host persists between turns; every mutation is
// expressed as a Delta and merged with Apply.
package domain
