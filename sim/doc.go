// Package sim holds the shared kernel of the triage simulator: engine
// configuration and deterministic randomness.
//
// # Reading Guide
//
// Start with these packages to understand the simulation:
//   - body/: anatomical graph (blocks, connections), guarded traversal and the
//     flow dispatcher that splits blood flow between child blocks
//   - physio/: one-instant vitals derivation, autonomic compensation and the
//     checkpointed rule scheduler (Advance)
//   - world/: per-entity snapshot timelines, event ingestion with retroactive
//     recomputation, delayed actions and fog-of-war views
//
// # Architecture
//
// Static content (injuries, items, acts, chemicals, response curves) lives in
// an explicitly constructed content.Registry passed by reference; there is no
// package-level registry. All time values are int64 milliseconds of simulated
// time, the exercise starting at 0.
//
// Supporting packages:
//   - content/: YAML content loading, validation and injury instantiation
//   - trace/: per-observer log records
//   - journal/: SQLite event journal used for replay
//
// # Determinism
//
// Randomness is confined to injury instantiation and drawn from a
// PartitionedRNG stream per event. Replaying an identical event log yields
// bit-identical body states.
package sim
