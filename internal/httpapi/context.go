package httpapi

import (
	"context"
)

// serverBaseCtx is canceled on process shutdown so in-flight generations
// stop with the daemon. Defaults to Background until main installs one.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level base context used by handlers.
// Passing nil resets to Background.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context from req that is additionally canceled when
// base is done. Request-scoped values stay visible. The returned cancel must
// be called when the handler ends to release the base watcher.
func joinContexts(base, req context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(req)
	stop := context.AfterFunc(base, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
