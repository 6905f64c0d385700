package serving

import (
	"context"
	"encoding/json"
	"io"
	"sync/atomic"
	"time"

	"sqlcoderd/internal/prompt"
	"sqlcoderd/internal/tgi"
	"sqlcoderd/pkg/types"
)

func (s *Service) params(req types.GenerateRequest) tgi.GenerateParameters {
	p := tgi.GenerateParameters{MaxNewTokens: s.maxNewTokens}
	if req.MaxNewTokens > 0 && req.MaxNewTokens < s.maxNewTokens {
		p.MaxNewTokens = req.MaxNewTokens
	}
	return p
}

// Generate renders the prompt for req, runs one generation and returns the
// produced SQL text. Admission, cold start and the request deadline all
// happen in here.
func (s *Service) Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error) {
	var resp types.GenerateResponse
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	release, err := s.beginGeneration(ctx)
	if err != nil {
		return resp, err
	}
	defer release()

	client, err := s.ensureEngine(ctx)
	if err != nil {
		generationsTotal.WithLabelValues("sync", "error").Inc()
		return resp, err
	}

	start := time.Now()
	inputs := prompt.Render(req.Question, req.Metadata)
	text, err := client.Generate(ctx, inputs, s.params(req))
	if err != nil {
		s.setLastError(err)
		generationsTotal.WithLabelValues("sync", "error").Inc()
		if ctx.Err() != nil {
			return resp, ctx.Err()
		}
		return resp, ErrUpstream(err)
	}
	s.setLastError(nil)
	atomic.AddUint64(&s.generations, 1)
	dur := time.Since(start)
	generationsTotal.WithLabelValues("sync", "ok").Inc()
	generationDuration.WithLabelValues("sync").Observe(dur.Seconds())

	resp.GeneratedText = text
	resp.Model = s.pre.ID
	resp.DurationMs = dur.Milliseconds()
	return resp, nil
}

// GenerateStream renders the prompt for req and streams generation progress
// to w as NDJSON: one {"token":...} line per generated token (special
// tokens filtered out), then a terminal {"done":true,"generated_text":...}
// line with the full text.
func (s *Service) GenerateStream(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) error {
	ctx, cancel := context.WithTimeout(ctx, s.requestTimeout)
	defer cancel()

	release, err := s.beginGeneration(ctx)
	if err != nil {
		return err
	}
	defer release()

	client, err := s.ensureEngine(ctx)
	if err != nil {
		generationsTotal.WithLabelValues("stream", "error").Inc()
		return err
	}

	start := time.Now()
	inputs := prompt.Render(req.Question, req.Metadata)
	onToken := func(tok tgi.Token) error {
		if tok.Special || tok.Text == "" {
			return nil
		}
		if _, werr := w.Write(tokenLine(tok.Text)); werr != nil {
			return werr
		}
		tokensStreamedTotal.Inc()
		if flush != nil {
			flush()
		}
		return nil
	}
	final, err := client.GenerateStream(ctx, inputs, s.params(req), onToken)
	if err != nil {
		s.setLastError(err)
		generationsTotal.WithLabelValues("stream", "error").Inc()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrUpstream(err)
	}
	s.setLastError(nil)
	atomic.AddUint64(&s.generations, 1)
	generationsTotal.WithLabelValues("stream", "ok").Inc()
	generationDuration.WithLabelValues("stream").Observe(time.Since(start).Seconds())

	end, _ := json.Marshal(types.StreamEvent{Done: true, GeneratedText: final})
	if _, err := w.Write(append(end, '\n')); err != nil {
		return err
	}
	if flush != nil {
		flush()
	}
	return nil
}

// tokenLine formats a token NDJSON line using json.Marshal for correctness.
func tokenLine(tok string) []byte {
	b, _ := json.Marshal(types.StreamEvent{Token: tok})
	return append(b, '\n')
}
