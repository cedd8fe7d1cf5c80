package rig

// Job is the mutable state threaded through every pipeline stage. One
// instance exists per request; it is never shared across concurrent jobs and
// is discarded when the scoped workspace is released.
type Job struct {
	InputPath        string
	AnimationPath    string
	OutputDir        string
	IsGS             bool
	OpacityThreshold float64

	Paths Paths
}

// NewJob builds the initial job context for an input rooted at outputDir.
func NewJob(inputPath, outputDir string, cfg Config) *Job {
	job := &Job{
		InputPath:        inputPath,
		OutputDir:        outputDir,
		IsGS:             cfg.IsGS,
		OpacityThreshold: cfg.OpacityThreshold,
	}
	job.Paths = PlanPaths(inputPath, outputDir, cfg.IsGS)
	return job
}

// SetOutputDir re-roots every artifact path at dir. Recomputation is
// idempotent; only the directory component changes.
func (j *Job) SetOutputDir(dir string) {
	j.OutputDir = dir
	j.Paths = PlanPaths(j.InputPath, dir, j.IsGS)
}
