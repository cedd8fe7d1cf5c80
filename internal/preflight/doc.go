// Package preflight provides readiness checks for the external tools and
// filesystem paths the rigging pipeline depends on.
//
// These checks run in two contexts:
//   - The daemon calls RunAll at startup and refuses to serve when a
//     required check fails, so requests never reach a broken engine.
//   - The CLI "animrig check" command renders the same results as a table
//     for operators diagnosing a host.
//
// Checks gated by a config toggle are skipped when the feature is disabled.
package preflight
