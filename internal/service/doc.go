// Package service exposes the rigging pipeline as a stateless HTTP
// microservice: POST /rig runs one job synchronously and GET /healthz
// reports liveness.
//
// The server enforces single-instance execution with a file lock because
// the inference engine assumes exclusive access to a single accelerator,
// and serializes jobs for the same reason. Every internal failure maps to
// one opaque 500 response; requests are processed and forgotten.
package service
