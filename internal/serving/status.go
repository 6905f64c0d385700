package serving

import (
	"sync/atomic"
	"time"

	"sqlcoderd/pkg/types"
)

// Engine state labels reported by Status.
const (
	engineStopped  = "stopped"
	engineStarting = "starting"
	engineReady    = "ready"
)

// Status builds a detailed status response for the status endpoint.
func (s *Service) Status() types.StatusResponse {
	s.mu.RLock()
	lastErr := s.lastError
	starting := s.starting
	s.mu.RUnlock()

	engineState := engineStopped
	var pid, port int
	var startedUnix int64
	if s.engine.Running() {
		engineState = engineStarting
		if s.engine.Ready() {
			engineState = engineReady
		}
		pid = s.engine.PID()
		port = s.engine.Port()
		startedUnix = s.engine.StartedAt().Unix()
	} else if starting {
		engineState = engineStarting
	}

	return types.StatusResponse{
		Model:    s.pre.ID,
		Revision: s.pre.Revision,
		Engine: types.EngineStatus{
			State:       engineState,
			PID:         pid,
			Port:        port,
			StartedUnix: startedUnix,
		},
		QueueLen:            len(s.queueCh),
		Inflight:            len(s.genCh),
		MaxConcurrentInputs: cap(s.genCh),
		GenerationsTotal:    atomic.LoadUint64(&s.generations),
		ColdStartsTotal:     atomic.LoadUint64(&s.coldStarts),
		UptimeSeconds:       int64(time.Since(s.startTime).Seconds()),
		ServerTimeUnix:      time.Now().Unix(),
		LastError:           lastErr,
	}
}
