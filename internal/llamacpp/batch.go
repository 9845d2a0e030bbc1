package llamacpp

import "fmt"

// Batch is a Go-side mirror of llama_batch for a single sequence (seq id 0).
// It is filled by the engine and copied into the native batch on Decode.
type Batch struct {
	Tokens []Token
	Pos    []int32
	// Logits flags the entries whose output logits are needed.
	Logits []bool
	cap    int
}

// NewBatch allocates a batch that holds up to capacity tokens.
func NewBatch(capacity int) *Batch {
	if capacity < 1 {
		capacity = 1
	}
	return &Batch{
		Tokens: make([]Token, 0, capacity),
		Pos:    make([]int32, 0, capacity),
		Logits: make([]bool, 0, capacity),
		cap:    capacity,
	}
}

// Add appends a token at position pos.
func (b *Batch) Add(t Token, pos int32, logits bool) error {
	if len(b.Tokens) >= b.cap {
		return fmt.Errorf("batch full: capacity %d", b.cap)
	}
	if pos < 0 {
		return fmt.Errorf("negative position %d", pos)
	}
	b.Tokens = append(b.Tokens, t)
	b.Pos = append(b.Pos, pos)
	b.Logits = append(b.Logits, logits)
	return nil
}

// Clear empties the batch, keeping its capacity.
func (b *Batch) Clear() {
	b.Tokens = b.Tokens[:0]
	b.Pos = b.Pos[:0]
	b.Logits = b.Logits[:0]
}

func (b *Batch) Len() int { return len(b.Tokens) }

func (b *Batch) Cap() int { return b.cap }
