package ctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sqlcoderd/pkg/types"
)

// Client calls a deployed daemon's HTTP API. Requests carry no client-side
// timeout: generation time is bounded by the server, and callers cancel via
// context.
type Client struct {
	base  string
	httpc *http.Client
}

// NewClient builds a client for the daemon at endpoint.
func NewClient(endpoint string) *Client {
	return &Client{
		base:  strings.TrimRight(endpoint, "/"),
		httpc: &http.Client{Timeout: 0},
	}
}

// Generate runs one generation and returns the response.
func (c *Client) Generate(ctx context.Context, req types.GenerateRequest) (types.GenerateResponse, error) {
	resp, err := c.post(ctx, "/v1/generate", req)
	if err != nil {
		return types.GenerateResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.GenerateResponse{}, decodeAPIError(resp)
	}
	var out types.GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.GenerateResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// streamLine is the union of the NDJSON line shapes the stream endpoint
// emits: token lines, the terminal done line, and a trailing error line.
type streamLine struct {
	Token         string `json:"token"`
	Done          bool   `json:"done"`
	GeneratedText string `json:"generated_text"`
	Error         string `json:"error"`
	Code          int    `json:"code"`
}

// GenerateStream runs one streaming generation, delivering each token text to
// onToken, and returns the full generated text from the terminal line.
func (c *Client) GenerateStream(ctx context.Context, req types.GenerateRequest, onToken func(token string) error) (string, error) {
	resp, err := c.post(ctx, "/v1/generate/stream", req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", decodeAPIError(resp)
	}

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if len(strings.TrimSpace(line)) > 0 {
			var ev streamLine
			if jerr := json.Unmarshal([]byte(line), &ev); jerr != nil {
				return "", fmt.Errorf("decode stream line: %w", jerr)
			}
			switch {
			case ev.Error != "":
				return "", fmt.Errorf("%s", ev.Error)
			case ev.Done:
				return ev.GeneratedText, nil
			case ev.Token != "":
				if onToken != nil {
					if terr := onToken(ev.Token); terr != nil {
						return "", terr
					}
				}
			}
		}
		if err == io.EOF {
			return "", fmt.Errorf("stream ended without a terminal event")
		}
		if err != nil {
			return "", err
		}
	}
}

// Status fetches the daemon's serving status.
func (c *Client) Status(ctx context.Context) (types.StatusResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/status", nil)
	if err != nil {
		return types.StatusResponse{}, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return types.StatusResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return types.StatusResponse{}, decodeAPIError(resp)
	}
	var out types.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.StatusResponse{}, fmt.Errorf("decode status: %w", err)
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpc.Do(req)
}

// decodeAPIError surfaces the server's error payload verbatim, falling back
// to the raw body when it is not the standard shape.
func decodeAPIError(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var apiErr types.ErrorResponse
	if err := json.Unmarshal(b, &apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("%s", apiErr.Error)
	}
	return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
}
