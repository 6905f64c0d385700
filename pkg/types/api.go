package types

// GenerateRequest is the payload for POST /v1/generate and /v1/generate/stream.
type GenerateRequest struct {
	// Required natural-language question to translate into SQL.
	// example: How many salespeople are there?
	Question string `json:"question" example:"How many salespeople are there?"`
	// Optional table metadata (CREATE TABLE statements plus join hints).
	// When empty, the built-in example schema is used.
	// example: CREATE TABLE products (product_id INTEGER PRIMARY KEY);
	Metadata string `json:"metadata,omitempty" example:"CREATE TABLE products (product_id INTEGER PRIMARY KEY);"`
	// Maximum number of new tokens to generate. Defaults to 1024.
	// example: 1024
	MaxNewTokens int `json:"max_new_tokens,omitempty" example:"1024"`
}

// GenerateResponse carries the raw model output. The text is returned as
// generated, without SQL validation or parsing.
type GenerateResponse struct {
	// Raw text produced by the model, by convention a SQL statement.
	// example: SELECT COUNT(*) FROM salespeople;
	GeneratedText string `json:"generated_text" example:"SELECT COUNT(*) FROM salespeople;"`
	// Preset id that served the request.
	// example: sqlcoder2
	Model string `json:"model" example:"sqlcoder2"`
	// Wall-clock generation time in milliseconds.
	// example: 1843
	DurationMs int64 `json:"duration_ms" example:"1843"`
}

// StreamEvent is one NDJSON line of POST /v1/generate/stream. Token lines
// carry a single fragment; the final line has Done set and repeats the full
// concatenated text.
type StreamEvent struct {
	// Generated token text (absent on the final line).
	// example: SELECT
	Token string `json:"token,omitempty" example:"SELECT"`
	// True on the terminating line.
	// example: true
	Done bool `json:"done,omitempty" example:"true"`
	// Full generated text, present on the terminating line only.
	// example: SELECT COUNT(*) FROM salespeople;
	GeneratedText string `json:"generated_text,omitempty" example:"SELECT COUNT(*) FROM salespeople;"`
}

// ModelsResponse wraps the preset catalog returned by GET /v1/models.
type ModelsResponse struct {
	// Available model presets.
	Models []Model `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: question is required
	Error string `json:"error" example:"question is required"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// EngineStatus summarizes the supervised inference server process.
type EngineStatus struct {
	// Lifecycle state: stopped, starting, or ready.
	// example: ready
	State string `json:"state" example:"ready"`
	// Process ID of text-generation-launcher, when running.
	// example: 12345
	PID int `json:"pid,omitempty" example:"12345"`
	// Local port the inference server listens on.
	// example: 8000
	Port int `json:"port,omitempty" example:"8000"`
	// Unix time the process was started.
	// example: 1700000000
	StartedUnix int64 `json:"started_unix,omitempty" example:"1700000000"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Preset id being served.
	// example: sqlcoder2
	Model string `json:"model" example:"sqlcoder2"`
	// Pinned hub revision.
	// example: 4ccba9158b67de83b070a4eb2fadaeb58ab2cd14
	Revision string `json:"revision" example:"4ccba9158b67de83b070a4eb2fadaeb58ab2cd14"`
	// Supervised inference server state.
	Engine EngineStatus `json:"engine"`
	// Requests waiting for an inflight slot.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Requests currently forwarded to the inference server.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// Maximum concurrent inputs per container.
	// example: 10
	MaxConcurrentInputs int `json:"max_concurrent_inputs" example:"10"`
	// Total generations served since start.
	// example: 42
	GenerationsTotal uint64 `json:"generations_total" example:"42"`
	// Times the inference server was started (1 + restarts after idle stops).
	// example: 2
	ColdStartsTotal uint64 `json:"cold_starts_total" example:"2"`
	// Uptime of the daemon in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Last error observed by the supervisor, if any.
	LastError string `json:"last_error,omitempty"`
}
