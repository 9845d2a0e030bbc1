package manager

import (
	"math"

	"ggufd/internal/llamacpp"
)

// Sampler picks the next token from a logit row. ok is false when the row
// has no usable candidate.
type Sampler interface {
	Sample(logits []float32) (tok llamacpp.Token, ok bool)
}

// greedy selects the highest logit. Ties go to the lowest token id; NaN
// entries are never selected.
type greedy struct{}

func (greedy) Sample(logits []float32) (llamacpp.Token, bool) {
	best := -1
	bestVal := float32(math.Inf(-1))
	for i, v := range logits {
		if v != v {
			continue
		}
		if best < 0 || v > bestVal {
			best, bestVal = i, v
		}
	}
	if best < 0 {
		return 0, false
	}
	return llamacpp.Token(best), true
}
