package manager

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"ggufd/internal/llamacpp"
)

// Finish reasons reported in GenerateResult.
const (
	FinishStop   = "stop"   // end-of-generation token
	FinishLength = "length" // max tokens reached
	FinishEmpty  = "empty"  // runtime returned no logits
)

// maxLoggedDetokenizeErrors bounds per-token warnings for one response.
const maxLoggedDetokenizeErrors = 10

// GenerateRequest is a text generation request.
type GenerateRequest struct {
	Prompt string
	// MaxTokens bounds the completion; 0 generates nothing.
	MaxTokens uint32
	// Temperature is recorded but decoding is greedy.
	Temperature float32
}

// GenerateResult is a finished, sanitized response.
type GenerateResult struct {
	Text             string
	PromptTokens     int
	CompletionTokens int
	DetokenizeErrors int
	FinishReason     string
	Duration         time.Duration
	RequestID        string
}

// kvCacheSize is the KV budget for a request: room for the whole context
// plus every requested token, never below minKVCache.
func kvCacheSize(contextSize, maxTokens uint32) uint32 {
	n := uint64(contextSize) + uint64(maxTokens)
	if n < minKVCache {
		n = minKVCache
	}
	if n > math.MaxUint32 {
		n = math.MaxUint32
	}
	return uint32(n)
}

// Generate runs prompt through the resident model and returns the greedy
// completion. The state lock is held for the whole request. ctx is checked
// between decode steps; a cancelled request returns ctx.Err() and no text.
func (m *Manager) Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error) {
	return m.generate(ctx, req, newRequestID())
}

func (m *Manager) generate(ctx context.Context, req GenerateRequest, reqID string) (GenerateResult, error) {
	const op = "generate"
	maxTokens := req.MaxTokens
	if req.Temperature != 0 {
		m.log.Debug().Float32("temperature", req.Temperature).Str("request_id", reqID).Msg("temperature ignored, decoding is greedy")
	}

	start := time.Now()
	var (
		res       GenerateResult
		modelPath string
	)
	err := m.withState(op, func(st *modelState) error {
		if !st.loaded() {
			return ErrModelNotLoaded
		}
		modelPath = st.modelPath
		m.publisher.Publish(Event{Name: EventGenerateStart, Model: modelPath, RequestID: reqID, Fields: map[string]any{
			"max_tokens": maxTokens,
			"prompt_len": len(req.Prompt),
		}})
		var err error
		res, err = m.runGeneration(ctx, st, req.Prompt, maxTokens)
		return err
	})
	if err != nil {
		outcome := KindOf(err).String()
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "canceled"
		}
		generationsTotal.WithLabelValues(outcome).Inc()
		if !IsModelNotLoaded(err) {
			m.log.Error().Err(err).Str("request_id", reqID).Str("model", modelPath).Msg("generation failed")
			m.publisher.Publish(Event{Name: EventGenerateError, Model: modelPath, RequestID: reqID, Fields: map[string]any{"error": err.Error()}})
		}
		return GenerateResult{}, err
	}

	res.Duration = time.Since(start)
	res.RequestID = reqID
	generationsTotal.WithLabelValues(res.FinishReason).Inc()
	tokensTotal.WithLabelValues("prompt").Add(float64(res.PromptTokens))
	tokensTotal.WithLabelValues("completion").Add(float64(res.CompletionTokens))
	generationDuration.Observe(res.Duration.Seconds())
	m.log.Info().
		Str("request_id", reqID).
		Int("prompt_tokens", res.PromptTokens).
		Int("completion_tokens", res.CompletionTokens).
		Str("finish", res.FinishReason).
		Dur("took", res.Duration).
		Msg("generation done")
	m.publisher.Publish(Event{Name: EventGenerateDone, Model: modelPath, RequestID: reqID, Fields: map[string]any{
		"prompt_tokens":     res.PromptTokens,
		"completion_tokens": res.CompletionTokens,
		"finish_reason":     res.FinishReason,
		"ms":                res.Duration.Milliseconds(),
	}})
	return res, nil
}

// runGeneration executes one request against the resident model. The
// inference context lives only for this call.
func (m *Manager) runGeneration(ctx context.Context, st *modelState, prompt string, maxTokens uint32) (GenerateResult, error) {
	const op = "generate"
	tokens, err := st.model.Tokenize(prompt, true)
	if err != nil {
		return GenerateResult{}, newError(KindTokenize, op, "failed to tokenize prompt", err)
	}
	if len(tokens) > int(st.contextSize) {
		return GenerateResult{}, newError(KindPromptTooLong, op,
			fmt.Sprintf("prompt is %d tokens, context size is %d", len(tokens), st.contextSize), nil)
	}

	params := llamacpp.ContextParams{
		ContextSize: kvCacheSize(st.contextSize, maxTokens),
		BatchSize:   m.cfg.BatchWidth,
		Threads:     m.cfg.Threads,
	}
	lctx, err := st.model.NewContext(params)
	if err != nil {
		return GenerateResult{}, newError(KindContext, op, "context creation failed", err)
	}
	defer func() {
		if cerr := lctx.Close(); cerr != nil {
			m.log.Warn().Err(cerr).Msg("close inference context")
		}
	}()

	cursor, logitsIdx, err := prefill(lctx, tokens, int(m.cfg.BatchWidth))
	if err != nil {
		return GenerateResult{}, err
	}

	out := make([]llamacpp.Token, 0, min(int(maxTokens), 256))
	finish := FinishLength
	step := llamacpp.NewBatch(1)
	for i := 0; i < int(maxTokens); i++ {
		if err := ctx.Err(); err != nil {
			return GenerateResult{}, err
		}
		tok, ok := m.sampler.Sample(lctx.Logits(logitsIdx))
		if !ok {
			finish = FinishEmpty
			break
		}
		if st.model.IsEOG(tok) {
			finish = FinishStop
			break
		}
		out = append(out, tok)

		step.Clear()
		if err := step.Add(tok, cursor, true); err != nil {
			return GenerateResult{}, newError(KindBatch, op, fmt.Sprintf("step %d", i), err)
		}
		if err := lctx.Decode(step); err != nil {
			return GenerateResult{}, newError(KindDecode, op, fmt.Sprintf("decode step %d at position %d", i, cursor), err)
		}
		cursor++
		logitsIdx = 0
	}

	raw, failed := m.detokenize(st.model, out)
	return GenerateResult{
		Text:             sanitize(raw),
		PromptTokens:     len(tokens),
		CompletionTokens: len(out),
		DetokenizeErrors: failed,
		FinishReason:     finish,
	}, nil
}

// detokenize renders each token on its own and concatenates the pieces.
// Tokens that fail to render are skipped and counted.
func (m *Manager) detokenize(mdl llamacpp.Model, toks []llamacpp.Token) (string, int) {
	var sb strings.Builder
	failed := 0
	for i, t := range toks {
		piece, err := mdl.TokenToPiece(t)
		if err != nil {
			failed++
			if failed <= maxLoggedDetokenizeErrors {
				m.log.Warn().Err(err).Int("index", i).Int32("token", int32(t)).Msg("skipping token that failed to detokenize")
			}
			continue
		}
		sb.WriteString(piece)
	}
	if failed > 0 {
		detokenizeFailures.Add(float64(failed))
		if failed > maxLoggedDetokenizeErrors {
			m.log.Warn().Int("failed", failed).Int("total", len(toks)).Msg("detokenize failures")
		}
	}
	return sb.String(), failed
}
