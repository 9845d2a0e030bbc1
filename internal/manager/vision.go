package manager

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"ggufd/internal/llamacpp"
)

// VisionRequest is a generation request with attached images.
type VisionRequest struct {
	Prompt      string
	Images      []string
	MaxTokens   uint32
	Temperature float32
}

// imageInfo is what the engine learns about an attachment without decoding
// its pixels.
type imageInfo struct {
	Format        string
	Width, Height int
	Bytes         int
}

// visionStrategy turns a vision request into a text request.
type visionStrategy struct {
	name    string
	rewrite func(prompt string, images []imageInfo) string
}

// textOnlyFallback tells the model that images were attached and could not
// be seen. It is used for every model until projector support exists.
var textOnlyFallback = visionStrategy{
	name: "text_only_fallback",
	rewrite: func(prompt string, images []imageInfo) string {
		return fmt.Sprintf("[System: User sent %d image(s) but vision processing is not yet implemented. "+
			"Please acknowledge the images and respond based on the text prompt.]\n\n%s", len(images), prompt)
	},
}

func strategyFor(llamacpp.Capability) visionStrategy {
	// TODO: route VisionCapable models through the mmproj projector once
	// llamacpp.Model exposes image embedding.
	return textOnlyFallback
}

// GenerateVision validates the attached images and answers the prompt.
// Images are decoded but not shown to the model; see textOnlyFallback.
// Any malformed image fails the whole request before generation starts.
func (m *Manager) GenerateVision(ctx context.Context, req VisionRequest) (GenerateResult, error) {
	const op = "generate_vision"
	var capability llamacpp.Capability
	err := m.withState(op, func(st *modelState) error {
		if !st.loaded() {
			return ErrModelNotLoaded
		}
		capability = st.model.Capability()
		return nil
	})
	if err != nil {
		return GenerateResult{}, err
	}

	infos := make([]imageInfo, 0, len(req.Images))
	for i, img := range req.Images {
		info, err := decodeImage(img)
		if err != nil {
			return GenerateResult{}, newError(KindImageDecode, op, fmt.Sprintf("image %d", i), err)
		}
		infos = append(infos, info)
	}

	reqID := newRequestID()
	strategy := strategyFor(capability)
	ev := m.log.Info().Str("request_id", reqID).Str("capability", capability.String()).Str("strategy", strategy.name)
	for i, info := range infos {
		ev = ev.Str(fmt.Sprintf("image_%d", i), fmt.Sprintf("%s %dx%d %dB", info.Format, info.Width, info.Height, info.Bytes))
	}
	ev.Int("images", len(infos)).Msg("vision request")
	m.publisher.Publish(Event{Name: EventVisionFallback, RequestID: reqID, Fields: map[string]any{
		"images":   len(infos),
		"strategy": strategy.name,
	}})

	return m.generate(ctx, GenerateRequest{
		Prompt:      strategy.rewrite(req.Prompt, infos),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}, reqID)
}

// decodeImage base64-decodes one attachment, accepting data URLs. The
// format probe is informational: bytes that are valid base64 but not a
// known image format are accepted.
func decodeImage(s string) (imageInfo, error) {
	if i := strings.Index(s, "base64,"); i >= 0 {
		s = s[i+len("base64,"):]
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return imageInfo{}, fmt.Errorf("invalid base64: %w", err)
	}
	info := imageInfo{Format: "unknown", Bytes: len(raw)}
	if cfg, format, err := image.DecodeConfig(bytes.NewReader(raw)); err == nil {
		info.Format, info.Width, info.Height = format, cfg.Width, cfg.Height
	}
	return info, nil
}
