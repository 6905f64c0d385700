package serving

import (
	"context"
	"time"
)

// beginGeneration reserves a queue slot and then one of the concurrent
// generation slots. Returns a release func to be deferred.
func (s *Service) beginGeneration(ctx context.Context) (func(), error) {
	// Fast path: respect an already-canceled context
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	// Try to reserve a queue slot with timeout
	timer := time.NewTimer(s.maxWait)
	defer timer.Stop()
	select {
	case s.queueCh <- struct{}{}:
		queueLen.Inc()
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		rejectionsTotal.WithLabelValues("queue_full").Inc()
		return func() {}, tooBusyError{model: s.pre.ID}
	}

	// Wait to acquire a generation slot
	acquired := false
	defer func() {
		if !acquired {
			<-s.queueCh
			queueLen.Dec()
		}
	}()
	// Check for cancellation again before blocking on a gen slot
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}
	timer2 := time.NewTimer(s.maxWait)
	defer timer2.Stop()
	select {
	case s.genCh <- struct{}{}:
		acquired = true
		inflight.Inc()
		s.touch()
		return func() {
			<-s.genCh
			inflight.Dec()
			<-s.queueCh
			queueLen.Dec()
			s.touch()
		}, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer2.C:
		rejectionsTotal.WithLabelValues("slot_wait").Inc()
		return func() {}, tooBusyError{model: s.pre.ID}
	}
}
