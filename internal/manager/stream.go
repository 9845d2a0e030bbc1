package manager

import (
	"context"
	"strings"

	"ggufd/pkg/types"
)

// Stream runs a full generation, then replays the finished text to emit as
// stream-start, one stream-token per word, a final stream-token with Done
// set, and stream-complete. Nothing is emitted if generation fails. An emit
// error stops the replay and is returned.
func (m *Manager) Stream(ctx context.Context, req GenerateRequest, emit func(types.StreamEvent) error) (GenerateResult, error) {
	res, err := m.Generate(ctx, req)
	if err != nil {
		return GenerateResult{}, err
	}
	return res, replay(res, emit)
}

func replay(res GenerateResult, emit func(types.StreamEvent) error) error {
	if err := emit(types.StreamEvent{Type: types.StreamStart, RequestID: res.RequestID}); err != nil {
		return err
	}
	for _, w := range strings.Fields(res.Text) {
		if err := emit(types.StreamEvent{Type: types.StreamToken, Token: w + " ", RequestID: res.RequestID}); err != nil {
			return err
		}
	}
	if err := emit(types.StreamEvent{Type: types.StreamToken, Done: true, RequestID: res.RequestID}); err != nil {
		return err
	}
	return emit(types.StreamEvent{Type: types.StreamComplete, Text: res.Text, RequestID: res.RequestID})
}
