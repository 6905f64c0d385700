// Package tgi is a minimal HTTP client for a text-generation-inference
// server. It covers the endpoints the daemon needs: generate, streaming
// generate, health and info.
package tgi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// GenerateParameters mirrors the server's generation knobs. Only the ones
// the daemon sets are declared; the server fills in its own defaults for
// the rest.
type GenerateParameters struct {
	MaxNewTokens int `json:"max_new_tokens,omitempty"`
}

type generateRequest struct {
	Inputs     string             `json:"inputs"`
	Parameters GenerateParameters `json:"parameters"`
}

type generateResponse struct {
	GeneratedText string `json:"generated_text"`
}

// Token is one streamed token. Special tokens (EOS and friends) carry
// Special=true and are filtered out by callers that surface text.
type Token struct {
	ID      int     `json:"id"`
	Text    string  `json:"text"`
	Logprob float64 `json:"logprob"`
	Special bool    `json:"special"`
}

type streamEvent struct {
	Token         Token   `json:"token"`
	GeneratedText *string `json:"generated_text"`
}

// Info describes the running server, as reported by GET /info.
type Info struct {
	ModelID               string `json:"model_id"`
	ModelSHA              string `json:"model_sha"`
	Version               string `json:"version"`
	MaxConcurrentRequests int    `json:"max_concurrent_requests"`
	MaxTotalTokens        int    `json:"max_total_tokens"`
}

// StatusError is a non-2xx reply from the server, with the decoded error
// body when the server sent one.
type StatusError struct {
	Code    int
	Message string
	Type    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("tgi: %d %s", e.Code, e.Message)
	}
	return fmt.Sprintf("tgi: unexpected status %d", e.Code)
}

// Client talks to one text-generation-inference server over HTTP.
type Client struct {
	baseURL    string
	reqTimeout time.Duration
	httpClient *http.Client
}

// NewClient constructs a client for the server at baseURL. reqTimeout
// bounds whole requests including streaming reads (0 = unbounded);
// connectTimeout bounds dialing only.
func NewClient(baseURL string, reqTimeout, connectTimeout time.Duration) *Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	// Timeout stays 0 on the client itself: generation can legitimately
	// run for many minutes, so deadlines are applied per request via
	// context in each method.
	cli := &http.Client{Transport: tr, Timeout: 0}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		reqTimeout: reqTimeout,
		httpClient: cli,
	}
}

// BaseURL reports the server address the client targets.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.reqTimeout > 0 {
		return context.WithTimeout(ctx, c.reqTimeout)
	}
	return ctx, func() {}
}

func decodeStatusError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	se := &StatusError{Code: resp.StatusCode}
	var body struct {
		Error     string `json:"error"`
		ErrorType string `json:"error_type"`
	}
	if err := json.Unmarshal(b, &body); err == nil && body.Error != "" {
		se.Message = body.Error
		se.Type = body.ErrorType
	} else {
		se.Message = strings.TrimSpace(string(b))
	}
	return se
}

// Generate runs one non-streaming generation and returns the generated text.
func (c *Client) Generate(ctx context.Context, inputs string, params GenerateParameters) (string, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	body, _ := json.Marshal(generateRequest{Inputs: inputs, Parameters: params})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeStatusError(resp)
	}
	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode generate response: %w", err)
	}
	return out.GeneratedText, nil
}

// GenerateStream runs one streaming generation, invoking onToken for every
// streamed token (special tokens included; callers filter). It returns the
// final generated text from the terminal event when the server sent one,
// otherwise the concatenation of non-special token texts.
func (c *Client) GenerateStream(ctx context.Context, inputs string, params GenerateParameters, onToken func(Token) error) (string, error) {
	ctx, cancel := c.withDeadline(ctx)
	defer cancel()

	body, _ := json.Marshal(generateRequest{Inputs: inputs, Parameters: params})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate_stream", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeStatusError(resp)
	}

	// SSE parse. The server emits "data:{json}" lines separated by blank
	// lines; the terminal event carries a non-null generated_text.
	r := bufio.NewReader(resp.Body)
	var assembled strings.Builder
	var final string
	var haveFinal bool
	for {
		line, err := r.ReadString('\n')
		if len(line) > 0 {
			line = strings.TrimSpace(line)
			if line != "" && strings.HasPrefix(strings.ToLower(line), "data:") {
				data := strings.TrimSpace(line[len("data:"):])
				var ev streamEvent
				if jsonErr := json.Unmarshal([]byte(data), &ev); jsonErr == nil {
					if cbErr := onToken(ev.Token); cbErr != nil {
						return "", cbErr
					}
					if !ev.Token.Special {
						assembled.WriteString(ev.Token.Text)
					}
					if ev.GeneratedText != nil {
						final = *ev.GeneratedText
						haveFinal = true
					}
				}
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", err
		}
	}
	if haveFinal {
		return final, nil
	}
	return assembled.String(), nil
}

// Health probes GET /health; nil means the server accepts inference.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

// ServerInfo fetches GET /info.
func (c *Client) ServerInfo(ctx context.Context) (Info, error) {
	var info Info
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/info", nil)
	if err != nil {
		return info, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return info, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return info, decodeStatusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return info, fmt.Errorf("decode info response: %w", err)
	}
	return info, nil
}
