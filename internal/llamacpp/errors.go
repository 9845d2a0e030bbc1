package llamacpp

import (
	"errors"
	"fmt"
)

// Error carries a diagnostic from the native runtime.
type Error struct {
	Op      string // e.g. "LoadModel", "Decode"
	Code    int    // return code from the C layer, -1 when none
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("llama.cpp %s: %s (code: %d): %v", e.Op, e.Message, e.Code, e.Err)
	}
	return fmt.Sprintf("llama.cpp %s: %s (code: %d)", e.Op, e.Message, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

var (
	// ErrUnavailable is returned when the binary was built without llama.cpp.
	ErrUnavailable = errors.New("llama support not built (missing 'llama' build tag)")
	// ErrInvalidPiece marks a token whose rendering is not valid UTF-8 on its own.
	ErrInvalidPiece = errors.New("token piece is not valid UTF-8")
	// ErrNoKVSlot is returned when a decode does not fit the KV cache.
	ErrNoKVSlot = errors.New("no KV cache slot available")
)
