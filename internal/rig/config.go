package rig

import (
	"fmt"
	"strings"

	"animrig/internal/services"
)

// Rest poses the engine understands. "No" means the rest pose is unknown and
// must be predicted.
const (
	RestPoseT       = "T-pose"
	RestPoseA       = "A-pose"
	RestPoseStretch = "大-pose"
	RestPoseNone    = "No"
)

// Body parts that may already be posed to rest.
var restParts = map[string]struct{}{
	"Fingers": {},
	"Arms":    {},
	"Legs":    {},
	"Head":    {},
}

// DefaultBWVisBone is the bone highlighted in the blend-weight visualization.
const DefaultBWVisBone = "LeftArm"

// Config is the immutable per-job configuration record. JSON field names
// mirror the CLI flag names one-to-one.
type Config struct {
	IsGS             bool     `json:"is_gs"`
	OpacityThreshold float64  `json:"opacity_threshold"`
	NoFingers        bool     `json:"no_fingers"`
	RestPose         string   `json:"rest_pose"`
	RestParts        []string `json:"rest_parts"`

	UseNormal bool   `json:"use_normal"`
	BWFix     bool   `json:"bw_fix"`
	BWVisBone string `json:"bw_vis_bone"`

	ResetToRest bool `json:"reset_to_rest"`
	Retarget    bool `json:"retarget"`
	Inplace     bool `json:"inplace"`

	AnimationFile string `json:"animation_file,omitempty"`
	OutputDir     string `json:"output_dir,omitempty"`
}

// DefaultConfig returns the configuration matching the CLI flag defaults.
func DefaultConfig() Config {
	return Config{
		OpacityThreshold: 0.01,
		RestPose:         RestPoseNone,
		BWFix:            true,
		BWVisBone:        DefaultBWVisBone,
		ResetToRest:      true,
		Retarget:         true,
		Inplace:          true,
	}
}

// Validate checks the enumerated fields once at request entry. The record is
// never mutated afterward.
func (c *Config) Validate() error {
	switch c.RestPose {
	case RestPoseT, RestPoseA, RestPoseStretch, RestPoseNone:
	default:
		return services.Wrap(services.ErrValidation, "", "config",
			fmt.Sprintf("rest_pose must be one of T-pose, A-pose, 大-pose, No; got %q", c.RestPose), nil)
	}
	for _, part := range c.RestParts {
		if _, ok := restParts[part]; !ok {
			return services.Wrap(services.ErrValidation, "", "config",
				fmt.Sprintf("rest_parts entry %q must be one of Fingers, Arms, Legs, Head", part), nil)
		}
	}
	if c.OpacityThreshold < 0 || c.OpacityThreshold > 1 {
		return services.Wrap(services.ErrValidation, "", "config",
			fmt.Sprintf("opacity_threshold must be within [0, 1]; got %g", c.OpacityThreshold), nil)
	}
	if strings.TrimSpace(c.BWVisBone) == "" {
		return services.Wrap(services.ErrValidation, "", "config", "bw_vis_bone must not be empty", nil)
	}
	return nil
}
