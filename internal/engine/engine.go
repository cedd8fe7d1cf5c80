package engine

import (
	"context"

	"animrig/internal/rig"
)

// Stage names in pipeline order.
const (
	StagePrepareInput = "prepare_input"
	StagePreprocess   = "preprocess"
	StageInfer        = "infer"
	StageVis          = "vis"
	StageVisBlender   = "vis_blender"
)

// Engine is the five-stage animation engine contract. InitModels loads the
// inference model into process-wide state; it is safe to call before every
// job and is a no-op after the first successful call.
type Engine interface {
	InitModels(ctx context.Context) error
	PrepareInput(ctx context.Context, cfg rig.Config, job *rig.Job) error
	Preprocess(ctx context.Context, job *rig.Job) error
	Infer(ctx context.Context, cfg rig.Config, job *rig.Job) error
	Vis(ctx context.Context, cfg rig.Config, job *rig.Job) error
	VisBlender(ctx context.Context, cfg rig.Config, job *rig.Job) error
}

// Stages binds an engine and a job config into the ordered stage list the
// runner executes.
func Stages(e Engine, cfg rig.Config) []rig.Stage {
	return []rig.Stage{
		{Name: StagePrepareInput, Run: func(ctx context.Context, job *rig.Job) error {
			return e.PrepareInput(ctx, cfg, job)
		}},
		{Name: StagePreprocess, Run: func(ctx context.Context, job *rig.Job) error {
			return e.Preprocess(ctx, job)
		}},
		{Name: StageInfer, Run: func(ctx context.Context, job *rig.Job) error {
			return e.Infer(ctx, cfg, job)
		}},
		{Name: StageVis, Run: func(ctx context.Context, job *rig.Job) error {
			return e.Vis(ctx, cfg, job)
		}},
		{Name: StageVisBlender, Run: func(ctx context.Context, job *rig.Job) error {
			return e.VisBlender(ctx, cfg, job)
		}},
	}
}
