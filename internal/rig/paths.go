package rig

import (
	"path/filepath"
	"strings"
)

// Paths maps every named artifact of a rigging job to its absolute location
// under the output directory. Fixed names are shared by all jobs; the final
// animation and its visualization carry the input file's base name.
type Paths struct {
	JointsCoarse string
	NormedInput  string
	Sample       string
	BlendWeights string
	Joints       string
	RestLBS      string
	RestVis      string
	Animation    string
	AnimationVis string
}

// PlanPaths derives the full artifact path set for a job. It is a pure
// function: no filesystem access, deterministic for identical arguments, and
// switching the output directory rewrites only the directory component.
//
// Gaussian-splat inputs keep their point-cloud nature through the pipeline:
// the rest-pose LBS model stays a .ply and the final animation becomes a
// Blender scene instead of an FBX rig.
func PlanPaths(inputPath, outputDir string, isGS bool) Paths {
	ext := filepath.Ext(inputPath)
	stem := strings.TrimSuffix(filepath.Base(inputPath), ext)

	restExt := ".glb"
	animExt := ".fbx"
	if isGS {
		restExt = ".ply"
		animExt = ".blend"
	}

	in := func(name string) string { return filepath.Join(outputDir, name) }
	return Paths{
		JointsCoarse: in("joints_coarse.glb"),
		NormedInput:  in("normed" + ext),
		Sample:       in("sample.glb"),
		BlendWeights: in("bw.glb"),
		Joints:       in("joints.glb"),
		RestLBS:      in("rest_lbs" + restExt),
		RestVis:      in("rest.glb"),
		Animation:    in(stem + animExt),
		AnimationVis: in(stem + ".glb"),
	}
}

// All returns the planned paths in pipeline order.
func (p Paths) All() []string {
	return []string{
		p.JointsCoarse,
		p.NormedInput,
		p.Sample,
		p.BlendWeights,
		p.Joints,
		p.RestLBS,
		p.RestVis,
		p.Animation,
		p.AnimationVis,
	}
}
