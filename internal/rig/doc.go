// Package rig holds the job-context orchestration core of the auto-rigging
// pipeline: the per-job configuration record, the deterministic artifact
// path plan, the mutable job context threaded through the five pipeline
// stages, and the runner that executes the stages in order.
//
// The actual inference, mesh, and animation algorithms live behind the
// engine collaborator; this package only cares about ordering, paths, and
// failure propagation.
package rig
