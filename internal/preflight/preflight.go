package preflight

import (
	"context"

	"animrig/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
// Optional checks may fail without blocking startup.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckBinary("Engine", cfg.Engine.Binary, false))

	// The engine shells out to Blender for the animation export stage; a
	// missing Blender only breaks that stage, not the whole pipeline.
	results = append(results, CheckBinary("Blender", "blender", true))

	results = append(results, CheckDirectoryAccess("Work directory", cfg.Paths.WorkDir))

	if cfg.Storage.Enabled {
		probe := CheckStorage(ctx, cfg.Storage.Endpoint)
		probe.Optional = true
		results = append(results, probe)
	}

	return results
}

// RequiredFailures returns the subset of results that must block startup.
func RequiredFailures(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			failed = append(failed, r)
		}
	}
	return failed
}
