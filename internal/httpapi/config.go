package httpapi

import "time"

// maxBodyBytes controls the maximum allowed request body size for JSON endpoints.
// Vision requests carry base64 images, so the default is generous.
var maxBodyBytes int64 = 64 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 64 << 20
		return
	}
	maxBodyBytes = n
}

// generateTimeout bounds a generation request. Zero means no additional
// timeout beyond server/connection timeouts.
var generateTimeout = int64(0) // seconds

// SetGenerateTimeoutSeconds sets the generation timeout in seconds (0 disables).
func SetGenerateTimeoutSeconds(sec int64) {
	if sec < 0 {
		sec = 0
	}
	generateTimeout = sec
}

func generateDeadline() time.Duration { return time.Duration(generateTimeout) * time.Second }

// defaultMaxTokens applies to requests that omit max_tokens.
var defaultMaxTokens uint32 = 512

// SetDefaultMaxTokens sets the completion bound for requests without max_tokens.
func SetDefaultMaxTokens(n uint32) { defaultMaxTokens = n }

func maxTokensOrDefault(p *uint32) uint32 {
	if p == nil {
		return defaultMaxTokens
	}
	return *p
}

// CORS configuration (opt-in). If disabled, no CORS middleware is added.
var (
	corsEnabled        bool
	corsAllowedOrigins []string
	corsAllowedMethods []string
	corsAllowedHeaders []string
)

// SetCORSOptions configures CORS behavior for the HTTP server.
func SetCORSOptions(enabled bool, origins, methods, headers []string) {
	corsEnabled = enabled
	corsAllowedOrigins = append([]string(nil), origins...)
	corsAllowedMethods = append([]string(nil), methods...)
	corsAllowedHeaders = append([]string(nil), headers...)
}
