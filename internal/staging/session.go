package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"animrig/internal/config"
	"animrig/internal/engine"
	"animrig/internal/fileutil"
	"animrig/internal/logging"
	"animrig/internal/rig"
	"animrig/internal/services"
	"animrig/internal/storage"
)

// Request describes one rigging job. References may be gs:// URIs or local
// filesystem paths.
type Request struct {
	InputRef     string
	AnimationRef string
	Config       rig.Config
}

// Result is the outcome of a successful job.
type Result struct {
	JobID     string
	ResultRef string
	OutputDir string
	Animation string
	Paths     rig.Paths
}

// Session wraps jobs end-to-end: workspace acquisition, input staging,
// pipeline execution, artifact publication, and guaranteed release.
type Session struct {
	cfg    *config.Config
	store  *storage.Client
	eng    engine.Engine
	runner *rig.Runner
	logger *slog.Logger
}

// NewSession constructs a session runner.
func NewSession(cfg *config.Config, store *storage.Client, eng engine.Engine, logger *slog.Logger) (*Session, error) {
	if cfg == nil {
		return nil, errors.New("session requires config")
	}
	if eng == nil {
		return nil, errors.New("session requires an engine")
	}
	return &Session{
		cfg:    cfg,
		store:  store,
		eng:    eng,
		runner: rig.NewRunner(logger),
		logger: logging.NewComponentLogger(logger, "staging"),
	}, nil
}

// Run executes one job. The scoped workspace is deleted before Run returns
// on every path, including cancellation; only the published artifact
// survives.
func (s *Session) Run(ctx context.Context, req Request) (*Result, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	ctx = services.WithJobID(ctx, jobID)
	logger := logging.WithContext(ctx, s.logger)

	// The engine guards first-call semantics itself; invoking it before
	// every job is deliberate.
	if err := s.eng.InitModels(ctx); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "init models", "", err)
	}

	workspace := filepath.Join(s.cfg.Paths.WorkDir, "rig-"+jobID)
	if err := os.MkdirAll(workspace, 0o755); err != nil {
		return nil, services.Wrap(services.ErrStaging, "", "create workspace", workspace, err)
	}
	defer func() {
		if err := os.RemoveAll(workspace); err != nil {
			logger.Warn("failed to release workspace",
				logging.String("workspace", workspace),
				logging.Error(err))
			return
		}
		logger.Debug("workspace released", logging.String("workspace", workspace))
	}()

	localInput, err := s.stageInput(ctx, req.InputRef, workspace)
	if err != nil {
		return nil, err
	}
	localAnim, err := s.stageAnimation(ctx, req, workspace)
	if err != nil {
		return nil, err
	}

	outputDir, explicitOut, err := s.resolveOutputDir(req.Config.OutputDir, workspace)
	if err != nil {
		return nil, err
	}

	job := rig.NewJob(localInput, outputDir, req.Config)
	job.AnimationPath = localAnim

	logger.Info("job started",
		logging.String("input", req.InputRef),
		logging.String("output_dir", outputDir),
		logging.Bool("is_gs", req.Config.IsGS))

	if err := s.runner.Run(ctx, job, engine.Stages(s.eng, req.Config)); err != nil {
		return nil, err
	}

	finalVis := job.Paths.AnimationVis
	if _, err := os.Stat(finalVis); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrInvariant, "", "publish",
				fmt.Sprintf("pipeline reported success but %s is missing", finalVis), nil)
		}
		return nil, services.Wrap(services.ErrStaging, "", "inspect result", finalVis, err)
	}

	resultRef, err := s.publish(ctx, jobID, finalVis, explicitOut)
	if err != nil {
		return nil, err
	}

	logger.Info("job completed", logging.String("result", resultRef))
	return &Result{
		JobID:     jobID,
		ResultRef: resultRef,
		OutputDir: outputDir,
		Animation: job.Paths.Animation,
		Paths:     job.Paths,
	}, nil
}

// validate rejects malformed requests before any workspace exists.
func (s *Session) validate(req Request) error {
	if strings.TrimSpace(req.InputRef) == "" {
		return services.Wrap(services.ErrValidation, "", "request", "input reference is required", nil)
	}
	if err := badScheme(req.InputRef); err != nil {
		return err
	}
	if err := req.Config.Validate(); err != nil {
		return err
	}
	if req.AnimationRef != "" {
		if err := badScheme(req.AnimationRef); err != nil {
			return err
		}
		if !storage.IsRemote(req.AnimationRef) {
			if _, err := os.Stat(req.AnimationRef); err != nil {
				return services.Wrap(services.ErrValidation, "", "request",
					fmt.Sprintf("local animation file not found: %s", req.AnimationRef), nil)
			}
		}
	}
	for _, ref := range []string{req.InputRef, req.AnimationRef} {
		if storage.IsRemote(ref) && !s.store.Enabled() {
			return services.Wrap(services.ErrValidation, "", "request",
				fmt.Sprintf("remote storage is disabled: cannot fetch %s", ref), nil)
		}
	}
	return nil
}

func badScheme(ref string) error {
	if storage.IsRemote(ref) {
		return nil
	}
	if idx := strings.Index(ref, "://"); idx >= 0 {
		return services.Wrap(services.ErrValidation, "", "request",
			fmt.Sprintf("unsupported reference scheme %q", ref[:idx+3]), nil)
	}
	return nil
}

// stageInput places the input model inside the workspace, downloading remote
// references under their original base names.
func (s *Session) stageInput(ctx context.Context, ref, workspace string) (string, error) {
	if storage.IsRemote(ref) {
		dest := filepath.Join(workspace, path.Base(ref))
		if err := s.store.Download(ctx, ref, dest); err != nil {
			return "", services.Wrap(services.ErrStaging, "", "download input", ref, err)
		}
		return dest, nil
	}
	if _, err := os.Stat(ref); err != nil {
		return "", services.Wrap(services.ErrStaging, "", "stage input",
			fmt.Sprintf("local input file not found: %s", ref), nil)
	}
	return ref, nil
}

func (s *Session) stageAnimation(ctx context.Context, req Request, workspace string) (string, error) {
	ref := req.AnimationRef
	if ref == "" {
		return "", nil
	}
	if storage.IsRemote(ref) {
		dest := filepath.Join(workspace, path.Base(ref))
		if err := s.store.Download(ctx, ref, dest); err != nil {
			return "", services.Wrap(services.ErrStaging, "", "download animation", ref, err)
		}
		return dest, nil
	}
	return ref, nil
}

// resolveOutputDir roots outputs at the caller's directory when supplied,
// otherwise inside the workspace. The boolean reports whether the directory
// outlives the workspace.
func (s *Session) resolveOutputDir(override, workspace string) (string, bool, error) {
	if strings.TrimSpace(override) != "" {
		expanded, err := config.ExpandPath(override)
		if err != nil {
			return "", false, services.Wrap(services.ErrValidation, "", "output dir", override, err)
		}
		if err := os.MkdirAll(expanded, 0o755); err != nil {
			return "", false, services.Wrap(services.ErrStaging, "", "create output dir", expanded, err)
		}
		return expanded, true, nil
	}
	out := filepath.Join(workspace, "out")
	if err := os.MkdirAll(out, 0o755); err != nil {
		return "", false, services.Wrap(services.ErrStaging, "", "create output dir", out, err)
	}
	return out, false, nil
}

// publish moves the final artifact to its durable destination before the
// workspace is released.
func (s *Session) publish(ctx context.Context, jobID, finalVis string, explicitOut bool) (string, error) {
	if s.store.Enabled() {
		dest := storage.JoinURI(s.cfg.Storage.OutputBucket, s.cfg.Storage.OutputPrefix, filepath.Base(finalVis))
		if err := s.store.Upload(ctx, finalVis, dest); err != nil {
			return "", services.Wrap(services.ErrStaging, "", "upload result", dest, err)
		}
		return dest, nil
	}
	if explicitOut {
		return finalVis, nil
	}

	// Local-only mode with workspace-rooted outputs: copy the result out
	// before release deletes it.
	resultsDir := filepath.Join(s.cfg.Paths.WorkDir, "results", jobID)
	if err := os.MkdirAll(resultsDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrStaging, "", "create results dir", resultsDir, err)
	}
	dest := filepath.Join(resultsDir, filepath.Base(finalVis))
	if err := fileutil.CopyFileVerified(finalVis, dest); err != nil {
		return "", services.Wrap(services.ErrStaging, "", "copy result", dest, err)
	}
	return dest, nil
}
