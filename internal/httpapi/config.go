package httpapi

const defaultMaxBodyBytes = 1 << 20

// maxBodyBytes caps JSON request bodies. Generate payloads carry the
// question plus an inline schema, so 1 MiB is plenty.
var maxBodyBytes int64 = defaultMaxBodyBytes

// SetMaxBodyBytes overrides the request body cap. Non-positive restores
// the default.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		n = defaultMaxBodyBytes
	}
	maxBodyBytes = n
}

// corsPolicy is opt-in. With enabled false no CORS middleware is mounted.
type corsPolicy struct {
	enabled bool
	origins []string
	methods []string
	headers []string
}

var corsConfig corsPolicy

// SetCORSOptions configures cross-origin behavior for the HTTP server.
// Slices are copied so callers may reuse their backing arrays.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsConfig = corsPolicy{
		enabled: enabled,
		origins: append([]string(nil), origins...),
		methods: append([]string(nil), methods...),
		headers: append([]string(nil), headers...),
	}
}
