package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"animrig/internal/rig"
	"animrig/internal/services"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onStdout func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client drives the engine binary, one subcommand per pipeline stage.
type Client struct {
	binary       string
	stageTimeout time.Duration
	exec         Executor

	initOnce sync.Once
	initErr  error
}

// Input formats the engine accepts for mesh jobs. Gaussian-splat jobs are
// always .ply point clouds.
var meshExtensions = map[string]struct{}{
	".glb":  {},
	".gltf": {},
	".fbx":  {},
	".obj":  {},
	".vrm":  {},
	".ply":  {},
}

// New constructs an engine client.
func New(binary string, stageTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("engine binary required")
	}
	client := &Client{
		binary:       binary,
		stageTimeout: time.Duration(stageTimeoutSeconds) * time.Second,
		exec:         commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// InitModels loads the inference model into engine memory. The underlying
// call is expensive but idempotent; the guard keeps first-call semantics
// even under concurrent callers.
func (c *Client) InitModels(ctx context.Context) error {
	c.initOnce.Do(func() {
		c.initErr = c.run(ctx, "init-models", nil)
	})
	return c.initErr
}

// PrepareInput validates the input model format and opacity threshold and
// yields the initial job context with all output paths set.
func (c *Client) PrepareInput(ctx context.Context, cfg rig.Config, job *rig.Job) error {
	ext := strings.ToLower(filepath.Ext(job.InputPath))
	if cfg.IsGS && ext != ".ply" {
		return services.Wrap(services.ErrValidation, StagePrepareInput, "",
			fmt.Sprintf("gaussian-splat input must be a .ply file, got %q", ext), nil)
	}
	if _, ok := meshExtensions[ext]; !ok {
		return services.Wrap(services.ErrValidation, StagePrepareInput, "",
			fmt.Sprintf("unsupported input format %q", ext), nil)
	}
	job.Paths = rig.PlanPaths(job.InputPath, job.OutputDir, job.IsGS)

	args := append(c.jobArgs(job),
		"--opacity-threshold", strconv.FormatFloat(job.OpacityThreshold, 'g', -1, 64))
	return c.run(ctx, StagePrepareInput, args)
}

// Preprocess normalizes the mesh or point cloud.
func (c *Client) Preprocess(ctx context.Context, job *rig.Job) error {
	return c.run(ctx, StagePreprocess, c.jobArgs(job))
}

// Infer runs the rigging model to estimate joints and blend weights.
func (c *Client) Infer(ctx context.Context, cfg rig.Config, job *rig.Job) error {
	args := c.jobArgs(job)
	if cfg.UseNormal {
		args = append(args, "--use-normal")
	}
	return c.run(ctx, StageInfer, args)
}

// Vis renders the diagnostic weight and joint visualizations.
func (c *Client) Vis(ctx context.Context, cfg rig.Config, job *rig.Job) error {
	args := append(c.jobArgs(job), "--bw-vis-bone", cfg.BWVisBone)
	if !cfg.BWFix {
		args = append(args, "--no-bw-fix")
	}
	if cfg.NoFingers {
		args = append(args, "--no-fingers")
	}
	return c.run(ctx, StageVis, args)
}

// VisBlender resets the rest pose, optionally retargets a supplied
// animation, and produces the final animatable model plus visualization.
func (c *Client) VisBlender(ctx context.Context, cfg rig.Config, job *rig.Job) error {
	args := append(c.jobArgs(job), "--rest-pose", cfg.RestPose)
	for _, part := range cfg.RestParts {
		args = append(args, "--rest-part", part)
	}
	if !cfg.ResetToRest {
		args = append(args, "--no-reset-to-rest")
	}
	if cfg.NoFingers {
		args = append(args, "--no-fingers")
	}
	if job.AnimationPath != "" {
		args = append(args, "--animation-file", job.AnimationPath)
	}
	if !cfg.Retarget {
		args = append(args, "--no-retarget")
	}
	if !cfg.Inplace {
		args = append(args, "--no-inplace")
	}
	return c.run(ctx, StageVisBlender, args)
}

func (c *Client) jobArgs(job *rig.Job) []string {
	args := []string{"--input", job.InputPath, "--output-dir", job.OutputDir}
	if job.IsGS {
		args = append(args, "--is-gs")
	}
	return args
}

func (c *Client) run(ctx context.Context, stage string, args []string) error {
	runCtx := ctx
	if c.stageTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.stageTimeout)
		defer cancel()
	}

	full := append([]string{stage}, args...)
	var lastLine string
	err := c.exec.Run(runCtx, c.binary, full, func(line string) {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lastLine = trimmed
		}
	})
	if err != nil {
		if lastLine != "" {
			return fmt.Errorf("engine %s: %s: %w", stage, lastLine, err)
		}
		return fmt.Errorf("engine %s: %w", stage, err)
	}
	return nil
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onStdout func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start command: %w", err)
	}

	var wg sync.WaitGroup
	var scanErr error
	var once sync.Once

	scan := func(r io.Reader, forward func(string)) {
		defer wg.Done()
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			forward(scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			once.Do(func() {
				scanErr = err
			})
		}
	}

	forward := func(line string) {
		if onStdout != nil {
			onStdout(line)
			return
		}
		fmt.Fprintln(os.Stderr, line)
	}

	wg.Add(2)
	go scan(stdout, forward)
	go scan(stderr, forward)

	wg.Wait()
	if scanErr != nil {
		_ = cmd.Process.Kill()
		return fmt.Errorf("scan output: %w", scanErr)
	}

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("wait command: %w", err)
	}
	return nil
}
