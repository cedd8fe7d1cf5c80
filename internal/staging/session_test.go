package staging

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"animrig/internal/config"
	"animrig/internal/engine"
	"animrig/internal/logging"
	"animrig/internal/rig"
	"animrig/internal/services"
	"animrig/internal/storage"
	"animrig/internal/testsupport"
)

// fakeEngine stands in for the external animation engine. vis_blender
// produces the final artifacts unless skipFinal is set.
type fakeEngine struct {
	initCalls int
	initErr   error
	calls     []string
	failStage string
	skipFinal bool
}

func (f *fakeEngine) stage(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.calls = append(f.calls, name)
	if f.failStage == name {
		return fmt.Errorf("%s exploded", name)
	}
	return nil
}

func (f *fakeEngine) InitModels(ctx context.Context) error {
	f.initCalls++
	return f.initErr
}

func (f *fakeEngine) PrepareInput(ctx context.Context, cfg rig.Config, job *rig.Job) error {
	return f.stage(ctx, engine.StagePrepareInput)
}

func (f *fakeEngine) Preprocess(ctx context.Context, job *rig.Job) error {
	return f.stage(ctx, engine.StagePreprocess)
}

func (f *fakeEngine) Infer(ctx context.Context, cfg rig.Config, job *rig.Job) error {
	return f.stage(ctx, engine.StageInfer)
}

func (f *fakeEngine) Vis(ctx context.Context, cfg rig.Config, job *rig.Job) error {
	return f.stage(ctx, engine.StageVis)
}

func (f *fakeEngine) VisBlender(ctx context.Context, cfg rig.Config, job *rig.Job) error {
	if err := f.stage(ctx, engine.StageVisBlender); err != nil {
		return err
	}
	if f.skipFinal {
		return nil
	}
	for _, p := range []string{job.Paths.Animation, job.Paths.AnimationVis} {
		if err := os.WriteFile(p, []byte("artifact"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func newTestSession(t *testing.T, cfg *config.Config, eng engine.Engine) *Session {
	t.Helper()
	session, err := NewSession(cfg, storage.NewClient(cfg), eng, logging.NewNop())
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	return session
}

func workspaceCount(t *testing.T, workDir string) int {
	t.Helper()
	entries, err := os.ReadDir(workDir)
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("read work dir: %v", err)
	}
	count := 0
	for _, entry := range entries {
		if entry.IsDir() && strings.HasPrefix(entry.Name(), "rig-") {
			count++
		}
	}
	return count
}

func TestSessionLocalMeshDefaults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "hero.glb")
	testsupport.WriteFile(t, input, []byte("mesh"))
	outDir := t.TempDir()

	jobCfg := rig.DefaultConfig()
	jobCfg.OutputDir = outDir

	fake := &fakeEngine{}
	session := newTestSession(t, cfg, fake)

	result, err := session.Run(context.Background(), Request{InputRef: input, Config: jobCfg})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if filepath.Ext(result.Animation) != ".fbx" {
		t.Errorf("animation = %s, want .fbx", result.Animation)
	}
	if result.ResultRef != filepath.Join(outDir, "hero.glb") {
		t.Errorf("result ref = %s, want visualization in the output dir", result.ResultRef)
	}
	if _, err := os.Stat(result.Animation); err != nil {
		t.Errorf("published animation missing: %v", err)
	}
	if got := workspaceCount(t, cfg.Paths.WorkDir); got != 0 {
		t.Errorf("workspace count after success = %d, want 0", got)
	}
	if result.JobID == "" {
		t.Error("result should carry a job id")
	}
}

func TestSessionSplatExtensions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "scene.ply")
	testsupport.WriteFile(t, input, []byte("splat"))

	jobCfg := rig.DefaultConfig()
	jobCfg.IsGS = true

	session := newTestSession(t, cfg, &fakeEngine{})
	result, err := session.Run(context.Background(), Request{InputRef: input, Config: jobCfg})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if filepath.Ext(result.Paths.RestLBS) != ".ply" {
		t.Errorf("rest LBS = %s, want .ply", result.Paths.RestLBS)
	}
	if filepath.Ext(result.Paths.Animation) != ".blend" {
		t.Errorf("animation = %s, want .blend", result.Paths.Animation)
	}
	if filepath.Ext(result.Paths.AnimationVis) != ".glb" {
		t.Errorf("animation vis = %s, want .glb", result.Paths.AnimationVis)
	}
}

func TestSessionRemotePublish(t *testing.T) {
	var uploadedPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte("mesh"))
		case http.MethodPut:
			uploadedPath = r.URL.Path
			w.WriteHeader(http.StatusOK)
		default:
			http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithStorage(srv.URL, "mia-results"))
	session := newTestSession(t, cfg, &fakeEngine{})

	result, err := session.Run(context.Background(), Request{
		InputRef: "gs://inputs/model.glb",
		Config:   rig.DefaultConfig(),
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if result.ResultRef != "gs://mia-results/rigs/model.glb" {
		t.Errorf("result ref = %s, want gs://mia-results/rigs/model.glb", result.ResultRef)
	}
	if uploadedPath != "/mia-results/rigs/model.glb" {
		t.Errorf("uploaded to %s", uploadedPath)
	}
	if got := workspaceCount(t, cfg.Paths.WorkDir); got != 0 {
		t.Errorf("workspace count after success = %d, want 0", got)
	}
}

func TestSessionStageFailureReleasesWorkspace(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "hero.glb")
	testsupport.WriteFile(t, input, []byte("mesh"))

	fake := &fakeEngine{failStage: engine.StageInfer}
	session := newTestSession(t, cfg, fake)

	_, err := session.Run(context.Background(), Request{InputRef: input, Config: rig.DefaultConfig()})
	if err == nil {
		t.Fatal("expected stage failure")
	}
	if !errors.Is(err, services.ErrStage) {
		t.Errorf("error %v should be a stage failure", err)
	}

	want := []string{engine.StagePrepareInput, engine.StagePreprocess, engine.StageInfer}
	if len(fake.calls) != len(want) {
		t.Errorf("stages executed: %v, want %v", fake.calls, want)
	}
	if got := workspaceCount(t, cfg.Paths.WorkDir); got != 0 {
		t.Errorf("workspace count after failure = %d, want 0", got)
	}
}

func TestSessionInvariantViolation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "hero.glb")
	testsupport.WriteFile(t, input, []byte("mesh"))

	session := newTestSession(t, cfg, &fakeEngine{skipFinal: true})
	_, err := session.Run(context.Background(), Request{InputRef: input, Config: rig.DefaultConfig()})
	if err == nil {
		t.Fatal("expected invariant violation")
	}
	if !errors.Is(err, services.ErrInvariant) {
		t.Errorf("error %v should be an invariant violation", err)
	}
	if got := workspaceCount(t, cfg.Paths.WorkDir); got != 0 {
		t.Errorf("workspace count after invariant violation = %d, want 0", got)
	}
}

func TestSessionValidationErrors(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "hero.glb")
	testsupport.WriteFile(t, input, []byte("mesh"))

	cases := []struct {
		name string
		req  Request
	}{
		{"missing input", Request{Config: rig.DefaultConfig()}},
		{"bad scheme", Request{InputRef: "s3://bucket/key", Config: rig.DefaultConfig()}},
		{"remote input with storage disabled", Request{InputRef: "gs://bucket/key.glb", Config: rig.DefaultConfig()}},
		{"missing local animation", Request{InputRef: input, AnimationRef: "/nonexistent/walk.fbx", Config: rig.DefaultConfig()}},
		{"bad rest pose", Request{InputRef: input, Config: func() rig.Config {
			c := rig.DefaultConfig()
			c.RestPose = "U-pose"
			return c
		}()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := &fakeEngine{}
			session := newTestSession(t, cfg, fake)
			_, err := session.Run(context.Background(), tc.req)
			if !errors.Is(err, services.ErrValidation) {
				t.Errorf("error %v should be a validation error", err)
			}
			if len(fake.calls) != 0 {
				t.Errorf("no stage should run on validation failure, got %v", fake.calls)
			}
			// Validation rejects before any workspace exists.
			if got := workspaceCount(t, cfg.Paths.WorkDir); got != 0 {
				t.Errorf("workspace count after validation error = %d, want 0", got)
			}
		})
	}
}

func TestSessionMissingLocalInput(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	session := newTestSession(t, cfg, &fakeEngine{})

	_, err := session.Run(context.Background(), Request{
		InputRef: filepath.Join(t.TempDir(), "nope.glb"),
		Config:   rig.DefaultConfig(),
	})
	if !errors.Is(err, services.ErrStaging) {
		t.Errorf("error %v should be a staging error", err)
	}
	if got := workspaceCount(t, cfg.Paths.WorkDir); got != 0 {
		t.Errorf("workspace count = %d, want 0", got)
	}
}

func TestSessionDownloadFailureReleasesWorkspace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithStorage(srv.URL, "mia-results"))
	session := newTestSession(t, cfg, &fakeEngine{})

	_, err := session.Run(context.Background(), Request{
		InputRef: "gs://inputs/model.glb",
		Config:   rig.DefaultConfig(),
	})
	if !errors.Is(err, services.ErrStaging) {
		t.Errorf("error %v should be a staging error", err)
	}
	if got := workspaceCount(t, cfg.Paths.WorkDir); got != 0 {
		t.Errorf("workspace count after download failure = %d, want 0", got)
	}
}

func TestSessionReleaseOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "hero.glb")
	testsupport.WriteFile(t, input, []byte("mesh"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	session := newTestSession(t, cfg, &fakeEngine{})
	_, err := session.Run(ctx, Request{InputRef: input, Config: rig.DefaultConfig()})
	if err == nil {
		t.Fatal("expected failure under canceled context")
	}
	if got := workspaceCount(t, cfg.Paths.WorkDir); got != 0 {
		t.Errorf("workspace count after cancel = %d, want 0", got)
	}
}

func TestSessionInitializesModelsEveryJob(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "hero.glb")
	testsupport.WriteFile(t, input, []byte("mesh"))

	fake := &fakeEngine{}
	session := newTestSession(t, cfg, fake)
	for i := 0; i < 2; i++ {
		if _, err := session.Run(context.Background(), Request{InputRef: input, Config: rig.DefaultConfig()}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}
	if fake.initCalls != 2 {
		t.Errorf("init calls = %d, want one per job", fake.initCalls)
	}
}

func TestSessionLocalPublishSurvivesRelease(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	input := filepath.Join(t.TempDir(), "hero.glb")
	testsupport.WriteFile(t, input, []byte("mesh"))

	// No output dir override and no remote storage: the result must still
	// outlive the workspace.
	session := newTestSession(t, cfg, &fakeEngine{})
	result, err := session.Run(context.Background(), Request{InputRef: input, Config: rig.DefaultConfig()})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(result.ResultRef); err != nil {
		t.Errorf("published result missing after release: %v", err)
	}
	if got := workspaceCount(t, cfg.Paths.WorkDir); got != 0 {
		t.Errorf("workspace count = %d, want 0", got)
	}
}
