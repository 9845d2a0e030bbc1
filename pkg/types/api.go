package types

// LoadRequest is the payload for POST /load.
type LoadRequest struct {
	// Absolute path to a GGUF model file.
	// example: /home/user/models/qwen2.5-7b-instruct-q4_k_m.gguf
	ModelPath string `json:"model_path" example:"/home/user/models/qwen2.5-7b-instruct-q4_k_m.gguf"`
	// KV cache budget in tokens; 0 uses the server default.
	// example: 4096
	ContextSize uint32 `json:"context_size,omitempty" example:"4096"`
	// Number of transformer layers to offload to the GPU.
	// example: 28
	GPULayers uint32 `json:"gpu_layers,omitempty" example:"28"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	// example: model loaded: /home/user/models/qwen2.5-7b-instruct-q4_k_m.gguf
	Message string `json:"message" example:"model loaded: /home/user/models/qwen2.5-7b-instruct-q4_k_m.gguf"`
}

// GenerateRequest is the payload for POST /generate.
type GenerateRequest struct {
	// Prompt text, passed to the tokenizer verbatim (no chat template is applied).
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Maximum number of new tokens. Omitted uses the server default; 0 generates nothing.
	// example: 128
	MaxTokens *uint32 `json:"max_tokens,omitempty" example:"128"`
	// Accepted for compatibility; decoding is greedy.
	// example: 0.7
	Temperature float32 `json:"temperature,omitempty" example:"0.7"`
	// If true, the finished response is replayed as NDJSON events.
	// example: false
	Stream bool `json:"stream,omitempty" example:"false"`
}

// VisionRequest is the payload for POST /generate/vision.
type VisionRequest struct {
	// example: What is in this picture?
	Prompt string `json:"prompt" example:"What is in this picture?"`
	// Base64 images, optionally as data URLs (data:image/png;base64,...).
	Images []string `json:"images"`
	// example: 128
	MaxTokens *uint32 `json:"max_tokens,omitempty" example:"128"`
	// example: 0.7
	Temperature float32 `json:"temperature,omitempty" example:"0.7"`
}

// Usage contains token accounting for one generation.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// GenerateResponse is returned by POST /generate and POST /generate/vision.
type GenerateResponse struct {
	// Cleaned response text.
	Text  string `json:"text"`
	Usage Usage  `json:"usage"`
	// Why generation ended: stop (end-of-generation token), length (max_tokens) or empty (no logits).
	// example: stop
	FinishReason string `json:"finish_reason" example:"stop"`
	// Tokens skipped because they could not be rendered.
	DetokenizeErrors int   `json:"detokenize_errors"`
	DurationMS       int64 `json:"duration_ms"`
	// Id shared with the events published for this request.
	RequestID string `json:"request_id"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not loaded
	Error string `json:"error" example:"model not loaded"`
	// HTTP status code.
	// example: 409
	Code int `json:"code" example:"409"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Whether a model is resident.
	Loaded bool `json:"loaded"`
	// Path of the resident model, null when none.
	ModelPath *string `json:"model_path"`
	// example: 4096
	ContextSize uint32 `json:"context_size" example:"4096"`
	// example: 0
	GPULayers          uint32 `json:"gpu_layers" example:"0"`
	BackendInitialized bool   `json:"backend_initialized"`
	// example: CPU
	Backend       string `json:"backend" example:"CPU"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}
