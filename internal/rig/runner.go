package rig

import (
	"context"
	"log/slog"
	"time"

	"animrig/internal/logging"
	"animrig/internal/services"
)

// Stage is one opaque pipeline step. Run mutates the job in place and
// reports an engine-specific error that the runner treats as terminal.
type Stage struct {
	Name string
	Run  func(ctx context.Context, job *Job) error
}

// Runner executes stages strictly in order against a single job context.
// It performs no retries: stages are expensive, create files, and are not
// idempotent, so transient-failure recovery belongs to the caller. The
// runner never inspects artifact contents, only whether a stage failed.
type Runner struct {
	logger *slog.Logger
}

// NewRunner constructs a runner. A nil logger is replaced with a no-op.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logging.NewComponentLogger(logger, "pipeline")}
}

// Run invokes each stage with the exact job context produced by its
// predecessor. On the first failure no later stage executes and the error is
// returned wrapped with the stage identity; the partially mutated job is
// left to the caller for cleanup decisions.
func (r *Runner) Run(ctx context.Context, job *Job, stages []Stage) error {
	for _, st := range stages {
		stageCtx := services.WithStage(ctx, st.Name)
		logger := logging.WithContext(stageCtx, r.logger)

		logger.Info("stage started",
			logging.String(logging.FieldEventType, "stage_start"))
		start := time.Now()

		if err := st.Run(stageCtx, job); err != nil {
			logger.Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failure"),
				logging.Duration("elapsed", time.Since(start)),
				logging.Error(err))
			return services.Wrap(services.ErrStage, st.Name, "", "", err)
		}

		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("elapsed", time.Since(start)))
	}
	return nil
}
