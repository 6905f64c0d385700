// Package serving coordinates SQL generation requests against a supervised
// inference engine. It is structured into small files by concern:
//
//   - service.go: core Service type, ServiceConfig and package defaults.
//   - errors.go: error types and helpers (IsTooBusy, IsNotReady, IsUpstream).
//   - admission.go: FIFO queueing and concurrent-generation admission.
//   - engine.go: engine supervision, cold starts, idle scale-to-zero.
//   - generate.go: sync and streaming generation entry points.
//   - status.go: Status reporting for the status endpoint.
//   - metrics.go: Prometheus collectors for the serving layer.
//
// External packages should treat this package as the orchestration layer and
// use public methods only (NewWithConfig, Generate, GenerateStream,
// ListModels, Status, Ready, Close). Internal types are subject to change.
package serving
