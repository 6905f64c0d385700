package serving

import "errors"

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ model string }

func (e tooBusyError) Error() string { return "too busy: " + e.model }

// ErrTooBusy constructs a tooBusyError.
func ErrTooBusy(model string) error { return tooBusyError{model: model} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// notReadyError signals that the engine is absent or still starting, so the
// HTTP layer can return 503 Service Unavailable instead of 500.
type notReadyError struct{ msg string }

func (e notReadyError) Error() string { return e.msg }

// ErrNotReady constructs a notReadyError.
func ErrNotReady(msg string) error { return notReadyError{msg: msg} }

// IsNotReady reports whether err indicates the engine cannot take work yet.
func IsNotReady(err error) bool {
	var e notReadyError
	return errors.As(err, &e)
}

// upstreamError wraps a failure reported by the engine itself, mapped to
// 502 Bad Gateway.
type upstreamError struct{ err error }

func (e upstreamError) Error() string { return "engine: " + e.err.Error() }

func (e upstreamError) Unwrap() error { return e.err }

// ErrUpstream wraps err as an engine-side failure.
func ErrUpstream(err error) error {
	if err == nil {
		return nil
	}
	return upstreamError{err: err}
}

// IsUpstream reports whether err originated in the engine.
func IsUpstream(err error) bool {
	var e upstreamError
	return errors.As(err, &e)
}
