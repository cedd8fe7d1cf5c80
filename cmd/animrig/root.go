package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"animrig/internal/config"
	"animrig/internal/engine"
	"animrig/internal/logging"
	"animrig/internal/rig"
	"animrig/internal/staging"
	"animrig/internal/storage"
)

type rigFlags struct {
	input      string
	outputDir  string
	isGS       bool
	opacity    float64
	noFingers  bool
	restPose   string
	restParts  []string
	useNormal  bool
	noBWFix    bool
	bwVisBone  string
	noReset    bool
	animFile   string
	noRetarget bool
	noInplace  bool
	configPath string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	flags := &rigFlags{}

	rootCmd := &cobra.Command{
		Use:           "animrig --input <path>",
		Short:         "Rig and animate a 3D model",
		Long:          "animrig runs the auto-rigging pipeline against a local 3D model and writes the rigged artifacts next to the input (or to --output-dir).",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRig(cmd, flags)
		},
	}

	rootCmd.Flags().StringVar(&flags.input, "input", "", "Path to input 3D model (required)")
	rootCmd.Flags().StringVar(&flags.outputDir, "output-dir", "", "Output directory (default: same directory as input)")
	rootCmd.Flags().BoolVar(&flags.isGS, "is-gs", false, "Input is Gaussian Splats (.ply format)")
	rootCmd.Flags().Float64Var(&flags.opacity, "opacity-threshold", 0.01, "Only splats with opacities above this threshold are used")
	rootCmd.Flags().BoolVar(&flags.noFingers, "no-fingers", false, "Input model doesn't have ten separate fingers")
	rootCmd.Flags().StringVar(&flags.restPose, "rest-pose", rig.RestPoseNone, "Current rest pose of the input model (T-pose, A-pose, 大-pose, No)")
	rootCmd.Flags().StringSliceVar(&flags.restParts, "rest-parts", nil, "Parts already in T-pose (Fingers, Arms, Legs, Head)")
	rootCmd.Flags().BoolVar(&flags.useNormal, "use-normal", false, "Use normal information to improve performance (meshes only)")
	rootCmd.Flags().BoolVar(&flags.noBWFix, "no-bw-fix", false, "Disable blend weight post-processing")
	rootCmd.Flags().StringVar(&flags.bwVisBone, "bw-vis-bone", rig.DefaultBWVisBone, "Bone name for weight visualization")
	rootCmd.Flags().BoolVar(&flags.noReset, "no-reset-to-rest", false, "Don't apply the predicted rest pose in the final model")
	rootCmd.Flags().StringVar(&flags.animFile, "animation-file", "", "Animation file (.fbx) to apply to the model")
	rootCmd.Flags().BoolVar(&flags.noRetarget, "no-retarget", false, "Disable animation retargeting")
	rootCmd.Flags().BoolVar(&flags.noInplace, "no-inplace", false, "Disable keeping looping animation in place")
	rootCmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	rootCmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Override configured log level")
	_ = rootCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(newCheckCommand())

	return rootCmd
}

func runRig(cmd *cobra.Command, flags *rigFlags) error {
	cfg, _, _, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	// The CLI always works on local files and publishes locally.
	cfg.Storage.Enabled = false

	level := cfg.Logging.Level
	if flags.logLevel != "" {
		level = flags.logLevel
	}
	logger, err := logging.New(logging.Options{Level: level, Format: cfg.Logging.Format})
	if err != nil {
		return err
	}

	absInput, err := filepath.Abs(flags.input)
	if err != nil {
		return fmt.Errorf("resolve input path: %w", err)
	}

	outputDir := flags.outputDir
	if outputDir == "" {
		outputDir = filepath.Dir(absInput)
	}

	jobCfg := rig.DefaultConfig()
	jobCfg.IsGS = flags.isGS
	jobCfg.OpacityThreshold = flags.opacity
	jobCfg.NoFingers = flags.noFingers
	jobCfg.RestPose = flags.restPose
	jobCfg.RestParts = flags.restParts
	jobCfg.UseNormal = flags.useNormal
	jobCfg.BWFix = !flags.noBWFix
	jobCfg.BWVisBone = flags.bwVisBone
	jobCfg.ResetToRest = !flags.noReset
	jobCfg.Retarget = !flags.noRetarget
	jobCfg.Inplace = !flags.noInplace
	jobCfg.AnimationFile = flags.animFile
	jobCfg.OutputDir = outputDir

	eng, err := engine.New(cfg.Engine.Binary, cfg.Engine.StageTimeoutSeconds)
	if err != nil {
		return err
	}
	session, err := staging.NewSession(cfg, storage.NewClient(cfg), eng, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Processing input: %s\n", absInput)

	result, err := session.Run(cmd.Context(), staging.Request{
		InputRef:     absInput,
		AnimationRef: flags.animFile,
		Config:       jobCfg,
	})
	if err != nil {
		return err
	}

	printSummary(cmd, result)
	return nil
}

func printSummary(cmd *cobra.Command, result *staging.Result) {
	out := cmd.OutOrStdout()
	if stdoutIsTerminal() {
		paths := result.Paths
		rows := [][]string{
			{"Coarse joints", paths.JointsCoarse},
			{"Normalized input", paths.NormedInput},
			{"Sampled points", paths.Sample},
			{"Blend weights", paths.BlendWeights},
			{"Joints", paths.Joints},
			{"Rest-pose LBS", paths.RestLBS},
			{"Rest-pose preview", paths.RestVis},
			{"Animation", paths.Animation},
			{"Animation preview", paths.AnimationVis},
		}
		fmt.Fprintln(out, renderTable([]string{"Artifact", "Path"}, rows))
	}
	fmt.Fprintf(out, "Output animatable model: %s\n", result.Animation)
	fmt.Fprintf(out, "All outputs stored in: %s\n", result.OutputDir)
}
