package manager

import (
	"fmt"

	"ggufd/internal/llamacpp"
)

// prefillChunk is one decode call of the prompt: tokens [start, end) at
// positions start..end-1.
type prefillChunk struct {
	start, end int
	// wantLogits is set only on the final chunk; its last token is the one
	// whose logits seed generation.
	wantLogits bool
}

// planPrefill splits n prompt tokens into chunks of at most width tokens.
// The plan depends only on n and width; positions come from a running
// cursor so the chunk boundaries never change what the model sees.
func planPrefill(n, width int) []prefillChunk {
	if n <= 0 {
		return nil
	}
	if width <= 0 || width > n {
		width = n
	}
	chunks := make([]prefillChunk, 0, (n+width-1)/width)
	for cursor := 0; cursor < n; cursor += width {
		end := min(cursor+width, n)
		chunks = append(chunks, prefillChunk{start: cursor, end: end, wantLogits: end == n})
	}
	return chunks
}

// prefill decodes the prompt and returns the cursor (next free position)
// and the batch index holding the prompt's output logits.
func prefill(lctx llamacpp.Context, tokens []llamacpp.Token, width int) (cursor int32, logitsIdx int, err error) {
	plan := planPrefill(len(tokens), width)
	if len(plan) == 0 {
		return 0, 0, newError(KindBatch, "prefill", "empty prompt", nil)
	}
	batch := llamacpp.NewBatch(plan[0].end - plan[0].start)
	for i, ch := range plan {
		batch.Clear()
		for j := ch.start; j < ch.end; j++ {
			if aerr := batch.Add(tokens[j], cursor, ch.wantLogits && j == ch.end-1); aerr != nil {
				return 0, 0, newError(KindBatch, "prefill", fmt.Sprintf("chunk %d/%d", i+1, len(plan)), aerr)
			}
			cursor++
		}
		if derr := lctx.Decode(batch); derr != nil {
			return 0, 0, newError(KindDecode, "prefill", fmt.Sprintf("decode chunk %d/%d (%d tokens)", i+1, len(plan), batch.Len()), derr)
		}
	}
	return cursor, batch.Len() - 1, nil
}
