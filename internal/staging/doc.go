// Package staging owns the resource lifecycle wrapping every rigging job:
// the scoped workspace, download of remote inputs, pipeline execution, and
// publication of the final artifact.
//
// The one hard guarantee is release on every exit path. A job's workspace is
// deleted whether the pipeline succeeds, a stage fails, staging itself
// fails, or the caller cancels; the only artifact that survives is the one
// already published outside the workspace. CleanStale additionally sweeps
// workspaces abandoned by earlier crashed processes.
package staging
