package engine

import (
	"context"
	"errors"
	"slices"
	"testing"

	"animrig/internal/rig"
	"animrig/internal/services"
)

type recordingExecutor struct {
	invocations [][]string
	failOn      string
	err         error
}

func (r *recordingExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	r.invocations = append(r.invocations, args)
	if r.failOn != "" && len(args) > 0 && args[0] == r.failOn {
		if r.err != nil {
			return r.err
		}
		return errors.New("engine blew up")
	}
	return nil
}

func newTestClient(t *testing.T, exec Executor) *Client {
	t.Helper()
	client, err := New("mia-engine", 0, WithExecutor(exec))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := New("  ", 0); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestInitModelsRunsOnce(t *testing.T) {
	exec := &recordingExecutor{}
	client := newTestClient(t, exec)

	for i := 0; i < 3; i++ {
		if err := client.InitModels(context.Background()); err != nil {
			t.Fatalf("init models: %v", err)
		}
	}
	if len(exec.invocations) != 1 {
		t.Errorf("init-models invoked %d times, want 1", len(exec.invocations))
	}
}

func TestInitModelsCachesFailure(t *testing.T) {
	exec := &recordingExecutor{failOn: "init-models"}
	client := newTestClient(t, exec)

	first := client.InitModels(context.Background())
	second := client.InitModels(context.Background())
	if first == nil || second == nil {
		t.Fatal("expected cached init failure on every call")
	}
	if len(exec.invocations) != 1 {
		t.Errorf("init-models invoked %d times, want 1", len(exec.invocations))
	}
}

func TestPrepareInputRejectsUnknownFormat(t *testing.T) {
	client := newTestClient(t, &recordingExecutor{})
	job := rig.NewJob("/models/hero.stl", "/out", rig.DefaultConfig())

	err := client.PrepareInput(context.Background(), rig.DefaultConfig(), job)
	if err == nil {
		t.Fatal("expected format error")
	}
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("error %v should be a validation error", err)
	}
}

func TestPrepareInputRequiresPLYForSplats(t *testing.T) {
	client := newTestClient(t, &recordingExecutor{})
	cfg := rig.DefaultConfig()
	cfg.IsGS = true
	job := rig.NewJob("/models/scene.glb", "/out", cfg)

	err := client.PrepareInput(context.Background(), cfg, job)
	if !errors.Is(err, services.ErrValidation) {
		t.Errorf("error %v should be a validation error", err)
	}
}

func TestPrepareInputPlansPaths(t *testing.T) {
	exec := &recordingExecutor{}
	client := newTestClient(t, exec)
	job := rig.NewJob("/models/hero.glb", "/out", rig.DefaultConfig())
	job.Paths = rig.Paths{}

	if err := client.PrepareInput(context.Background(), rig.DefaultConfig(), job); err != nil {
		t.Fatalf("prepare input: %v", err)
	}
	if job.Paths.AnimationVis == "" {
		t.Error("prepare input should set all output paths")
	}
	if len(exec.invocations) != 1 {
		t.Fatalf("expected one engine invocation, got %d", len(exec.invocations))
	}
	args := exec.invocations[0]
	if args[0] != StagePrepareInput {
		t.Errorf("subcommand = %s, want %s", args[0], StagePrepareInput)
	}
	if !slices.Contains(args, "--opacity-threshold") {
		t.Errorf("args %v missing opacity threshold", args)
	}
}

func TestVisBlenderArgsCarryAnimationSettings(t *testing.T) {
	exec := &recordingExecutor{}
	client := newTestClient(t, exec)

	cfg := rig.DefaultConfig()
	cfg.RestPose = rig.RestPoseA
	cfg.RestParts = []string{"Arms", "Head"}
	cfg.Retarget = false
	job := rig.NewJob("/models/hero.glb", "/out", cfg)
	job.AnimationPath = "/anims/walk.fbx"

	if err := client.VisBlender(context.Background(), cfg, job); err != nil {
		t.Fatalf("vis_blender: %v", err)
	}

	args := exec.invocations[0]
	for _, want := range []string{"--rest-pose", "A-pose", "--rest-part", "Arms", "Head", "--animation-file", "/anims/walk.fbx", "--no-retarget"} {
		if !slices.Contains(args, want) {
			t.Errorf("args %v missing %q", args, want)
		}
	}
	if slices.Contains(args, "--no-inplace") {
		t.Errorf("args %v should not disable inplace", args)
	}
}

func TestStagesOrder(t *testing.T) {
	exec := &recordingExecutor{}
	client := newTestClient(t, exec)
	cfg := rig.DefaultConfig()
	job := rig.NewJob("/models/hero.glb", "/out", cfg)

	for _, st := range Stages(client, cfg) {
		if err := st.Run(context.Background(), job); err != nil {
			t.Fatalf("stage %s: %v", st.Name, err)
		}
	}

	want := []string{StagePrepareInput, StagePreprocess, StageInfer, StageVis, StageVisBlender}
	if len(exec.invocations) != len(want) {
		t.Fatalf("engine invoked %d times, want %d", len(exec.invocations), len(want))
	}
	for i, name := range want {
		if exec.invocations[i][0] != name {
			t.Errorf("invocation %d = %s, want %s", i, exec.invocations[i][0], name)
		}
	}
}
