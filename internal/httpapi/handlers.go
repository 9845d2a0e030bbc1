package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"ggufd/internal/manager"
	"ggufd/pkg/types"
)

type handlers struct {
	svc Service
}

// decodeJSON enforces the content type and body limit shared by POST endpoints.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		// If exceeded size, MaxBytesReader may cause an error; still return 400 to avoid size leak details
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// requestContext joins the server base context with the request context so
// shutdown cancels work too, and applies the generation timeout if set.
func requestContext(r *http.Request, timed bool) (context.Context, context.CancelFunc) {
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	if !timed || generateTimeout == 0 {
		return ctx, cancel
	}
	tctx, tcancel := context.WithTimeout(ctx, generateDeadline())
	return tctx, func() { tcancel(); cancel() }
}

// load godoc
// @Summary      Load a model
// @Description  Loads a GGUF model, replacing any resident model on success.
// @Tags         lifecycle
// @Accept       json
// @Produce      json
// @Param        body  body      types.LoadRequest  true  "Load request"
// @Success      200   {object}  types.MessageResponse
// @Failure      404   {object}  types.ErrorResponse
// @Failure      503   {object}  types.ErrorResponse
// @Router       /load [post]
func (h *handlers) load(w http.ResponseWriter, r *http.Request) {
	var req types.LoadRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ModelPath) == "" {
		writeJSONError(w, http.StatusBadRequest, "model_path is required")
		return
	}
	lvl := requestLogLevel(r)
	ctx, cancel := requestContext(r, false)
	defer cancel()
	msg, err := h.svc.Load(ctx, req.ModelPath, req.ContextSize, req.GPULayers)
	if err != nil {
		status := statusFor(err)
		logRequestEnd(r, lvl, "load", status, err, map[string]any{"model_path": req.ModelPath})
		writeJSONError(w, status, err.Error())
		return
	}
	logRequestEnd(r, lvl, "load", http.StatusOK, nil, map[string]any{"model_path": req.ModelPath})
	writeJSON(w, types.MessageResponse{Message: msg})
}

// unload godoc
// @Summary      Unload the model
// @Description  Releases the resident model. With full=1 the backend is released too.
// @Tags         lifecycle
// @Produce      json
// @Param        full  query     bool  false  "Also release the backend"
// @Success      200   {object}  types.MessageResponse
// @Router       /unload [post]
func (h *handlers) unload(w http.ResponseWriter, r *http.Request) {
	mode := manager.UnloadModel
	switch strings.ToLower(r.URL.Query().Get("full")) {
	case "1", "true", "yes":
		mode = manager.UnloadFull
	}
	msg, err := h.svc.Unload(r.Context(), mode)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	logRequestEnd(r, requestLogLevel(r), "unload", http.StatusOK, nil, map[string]any{"mode": mode.String()})
	writeJSON(w, types.MessageResponse{Message: msg})
}

// generate godoc
// @Summary      Generate text
// @Description  Greedy generation from the loaded model. With stream=true the
// @Description  finished text is replayed as NDJSON stream events.
// @Tags         inference
// @Accept       json
// @Produce      json
// @Produce      application/x-ndjson
// @Param        body  body      types.GenerateRequest  true  "Generation request"
// @Success      200   {object}  types.GenerateResponse
// @Failure      409   {object}  types.ErrorResponse
// @Failure      413   {object}  types.ErrorResponse
// @Failure      500   {object}  types.ErrorResponse
// @Router       /generate [post]
func (h *handlers) generate(w http.ResponseWriter, r *http.Request) {
	var req types.GenerateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lvl := requestLogLevel(r)
	ctx, cancel := requestContext(r, true)
	defer cancel()
	mreq := manager.GenerateRequest{Prompt: req.Prompt, MaxTokens: maxTokensOrDefault(req.MaxTokens), Temperature: req.Temperature}
	if req.Stream {
		h.stream(ctx, w, r, lvl, mreq)
		return
	}
	res, err := h.svc.Generate(ctx, mreq)
	h.finish(w, r, lvl, "generate", res, err)
}

// generateVision godoc
// @Summary      Generate text with image attachments
// @Description  Images are base64 (optionally data-URL) encoded. Models without
// @Description  projector support answer from the text prompt.
// @Tags         inference
// @Accept       json
// @Produce      json
// @Param        body  body      types.VisionRequest  true  "Vision request"
// @Success      200   {object}  types.GenerateResponse
// @Failure      400   {object}  types.ErrorResponse
// @Failure      409   {object}  types.ErrorResponse
// @Router       /generate/vision [post]
func (h *handlers) generateVision(w http.ResponseWriter, r *http.Request) {
	var req types.VisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lvl := requestLogLevel(r)
	ctx, cancel := requestContext(r, true)
	defer cancel()
	res, err := h.svc.GenerateVision(ctx, manager.VisionRequest{
		Prompt:      req.Prompt,
		Images:      req.Images,
		MaxTokens:   maxTokensOrDefault(req.MaxTokens),
		Temperature: req.Temperature,
	})
	h.finish(w, r, lvl, "generate_vision", res, err)
}

// stream writes the replayed events as NDJSON. Generation finishes before
// the first line, so failures still get a JSON error response.
func (h *handlers) stream(ctx context.Context, w http.ResponseWriter, r *http.Request, lvl LogLevel, req manager.GenerateRequest) {
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	writer := io.Writer(w)
	if lvl >= LevelDebug {
		writer = io.MultiWriter(w, &loggingLineWriter{rid: middleware.GetReqID(r.Context())})
	}
	enc := json.NewEncoder(writer)
	started := false
	res, err := h.svc.Stream(ctx, req, func(ev types.StreamEvent) error {
		if !started {
			w.Header().Set("Content-Type", "application/x-ndjson")
			started = true
		}
		if err := enc.Encode(ev); err != nil {
			return err
		}
		if flush != nil {
			flush()
		}
		return nil
	})
	if err != nil {
		if started {
			// Headers are gone; the client sees a truncated stream.
			streamClientErrors.Inc()
			logRequestEnd(r, lvl, "stream", http.StatusOK, err, nil)
			return
		}
		status := statusFor(err)
		logRequestEnd(r, lvl, "stream", status, err, nil)
		if r.Context().Err() != nil {
			return
		}
		writeJSONError(w, status, err.Error())
		return
	}
	logRequestEnd(r, lvl, "stream", http.StatusOK, nil, resultFields(res))
}

func (h *handlers) finish(w http.ResponseWriter, r *http.Request, lvl LogLevel, op string, res manager.GenerateResult, err error) {
	if err != nil {
		status := statusFor(err)
		logRequestEnd(r, lvl, op, status, err, nil)
		// If the client went away there is nobody to answer.
		if r.Context().Err() != nil {
			return
		}
		writeJSONError(w, status, err.Error())
		return
	}
	logRequestEnd(r, lvl, op, http.StatusOK, nil, resultFields(res))
	writeJSON(w, toResponse(res))
}

// metadata godoc
// @Summary      Inspect a model file
// @Tags         models
// @Produce      json
// @Param        path  query     string  true  "Path to a .gguf file"
// @Success      200   {object}  types.ModelMetadata
// @Failure      404   {object}  types.ErrorResponse
// @Router       /metadata [get]
func (h *handlers) metadata(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeJSONError(w, http.StatusBadRequest, "path is required")
		return
	}
	md, err := h.svc.Metadata(path)
	if err != nil {
		writeJSONError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, md)
}

func toResponse(res manager.GenerateResult) types.GenerateResponse {
	return types.GenerateResponse{
		Text: res.Text,
		Usage: types.Usage{
			PromptTokens:     res.PromptTokens,
			CompletionTokens: res.CompletionTokens,
			TotalTokens:      res.PromptTokens + res.CompletionTokens,
		},
		FinishReason:     res.FinishReason,
		DetokenizeErrors: res.DetokenizeErrors,
		DurationMS:       res.Duration.Milliseconds(),
		RequestID:        res.RequestID,
	}
}

func resultFields(res manager.GenerateResult) map[string]any {
	return map[string]any{
		"gen_id":            res.RequestID,
		"prompt_tokens":     res.PromptTokens,
		"completion_tokens": res.CompletionTokens,
		"finish_reason":     res.FinishReason,
		"dur_ms":            res.Duration.Milliseconds(),
	}
}
