// Package engine wraps the external animation engine that performs the
// actual inference, mesh processing, and animation retargeting.
//
// The engine is an opaque collaborator with a five-stage contract
// (prepare_input, preprocess, infer, vis, vis_blender) plus an idempotent
// model-initialization call. Every error it reports is terminal for the
// current job. The default implementation shells out to the engine binary;
// tests substitute a fake.
package engine
