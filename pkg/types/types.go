// Package types holds the JSON payloads shared by the HTTP API, the CLI and
// the engine.
package types

// Stream event types, in emission order.
const (
	StreamStart    = "stream-start"
	StreamToken    = "stream-token"
	StreamComplete = "stream-complete"
)

// StreamEvent is one NDJSON line of a replayed response.
type StreamEvent struct {
	Type string `json:"type"`
	// Token text for stream-token events.
	Token string `json:"token,omitempty"`
	// Set on the final stream-token event.
	Done bool `json:"is_complete,omitempty"`
	// Full response on stream-complete.
	Text      string `json:"text,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
