// Package services defines shared utilities consumed by the rigging pipeline
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job identifiers and stage names for logging.
//   - Structured error markers plus the Wrap helper that classify failures
//     (validation, staging, stage, invariant) for the request adapters.
//
// Use these helpers when wiring new pipeline logic so error handling and
// observability stay uniform across the system.
package services
