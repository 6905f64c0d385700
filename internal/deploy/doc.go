// Package deploy ships serving containers to the local Docker engine and
// tracks them by application name. It is structured into small files by
// concern:
//
//   - spec.go: ContainerSpec and its translation to engine API objects.
//   - engine.go: the Engine interface and the Docker implementation.
//   - deployer.go: Deploy/Stop/Status orchestration and readiness waiting.
//   - state.go: the deployments file (app name -> container record).
//   - secrets.go: the named-secret file read at deploy time.
//
// The deployer declares the GPU shape a preset needs but never places
// devices itself; scheduling belongs to the engine.
package deploy
