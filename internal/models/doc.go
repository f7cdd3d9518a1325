// Package models defines the persisted input state for power-split.
//
// # Snapshot
//
// Everything the user enters lives in a single Snapshot:
//   - Tariff: day/night rates for the dual-rate policies, a flat rate for the
//     metered policy
//   - AggregateMeter: the whole-unit meter, read separately for day and night
//   - SubMeter: an ordered, user-managed list of meters, each serving a set of rooms
//   - Occupancy: people per room, one entry per room
//   - Group: named sets of rooms used to roll results up for reporting
//   - Policy: which allocation strategy the calculator applies
//
// Derived values (usages, shares, costs) are never stored here; the
// calculator package recomputes them from the snapshot on demand.
//
// # Design Principles
//
//  1. **Values, not pointers**: a Snapshot is copied on every edit. Edits
//     return a new Snapshot and never modify their receiver.
//  2. **Raw text for readings**: meter readings are stored exactly as typed,
//     blank included, so a reload shows the user what they entered.
//  3. **Total validation**: Validate and Decode never fail and never panic.
//     Each field has one documented default that replaces missing or
//     malformed input.
//  4. **One blob**: the whole snapshot is persisted atomically as one JSON
//     document, for both the local and the remote store.
//
// # Blob compatibility
//
// Decode reads the current schema (subMeters, policy) and the older one
// written by the two-meter calculator (meterB, meterC, distributionMode).
// Encode always writes the current schema plus distributionMode so older
// readers still pick the right common-pool split.
package models
