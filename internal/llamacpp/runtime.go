// Package llamacpp is the boundary between the engine and the native model
// runtime. The engine owns state, batching and the generation protocol; this
// package only exposes the primitives it needs: backend init, model load,
// tokenization, batched decode and logits.
//
// The llama.cpp binding is compiled with `-tags=llama`. Default builds get a
// stub whose InitBackend fails with ErrUnavailable, keeping CI CGO-free.
// FakeRuntime is a deterministic in-memory runtime used by tests and by
// `ggufd serve --runtime=fake`.
package llamacpp

import (
	"os"
	"path/filepath"
	"strings"
)

// Token is a vocabulary id.
type Token int32

// BackendKind names the accelerator the runtime was compiled for.
type BackendKind string

const (
	KindCPU    BackendKind = "CPU"
	KindCUDA   BackendKind = "CUDA"
	KindVulkan BackendKind = "Vulkan"
	KindMetal  BackendKind = "Metal"
)

// Capability describes what input modalities a loaded model can consume.
type Capability int

const (
	// TextOnly models accept token input only.
	TextOnly Capability = iota
	// VisionCapable models ship with a vision projector next to the weights.
	VisionCapable
)

func (c Capability) String() string {
	switch c {
	case VisionCapable:
		return "vision"
	default:
		return "text"
	}
}

// Runtime constructs execution backends.
type Runtime interface {
	// InitBackend initializes the process-wide execution backend. Callers
	// must not call it again until the returned Backend is closed.
	InitBackend() (Backend, error)
	// Kind reports the compiled accelerator.
	Kind() BackendKind
	// GPUOffload reports whether layers can be placed on a GPU.
	GPUOffload() bool
}

// Backend is an initialized execution environment models are loaded into.
type Backend interface {
	LoadModel(path string, gpuLayers int) (Model, error)
	Close() error
}

// Model is a loaded set of weights plus its vocabulary.
type Model interface {
	Tokenize(text string, addBOS bool) ([]Token, error)
	// TokenToPiece renders a single token, special tokens included.
	TokenToPiece(t Token) (string, error)
	// IsEOG reports whether t ends generation for this architecture.
	IsEOG(t Token) bool
	Capability() Capability
	NewContext(p ContextParams) (Context, error)
	Close() error
}

// ContextParams sizes an inference context.
type ContextParams struct {
	// ContextSize is the KV cache budget in tokens.
	ContextSize uint32
	// BatchSize is the maximum number of tokens per Decode call.
	BatchSize uint32
	Threads   int
}

// Context is a single-sequence execution context. It is not safe for
// concurrent use.
type Context interface {
	Decode(b *Batch) error
	// Logits returns the logits produced for batch index i by the last
	// Decode, or nil when that index did not request output.
	Logits(i int) []float32
	Close() error
}

// DetectCapability reports VisionCapable when a multimodal projector
// (mmproj*.gguf) sits in the same directory as the model file.
func DetectCapability(modelPath string) Capability {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(modelPath), "*.gguf"))
	if err != nil {
		return TextOnly
	}
	for _, m := range matches {
		if m == modelPath {
			continue
		}
		if strings.HasPrefix(strings.ToLower(filepath.Base(m)), "mmproj") {
			if fi, err := os.Stat(m); err == nil && !fi.IsDir() {
				return VisionCapable
			}
		}
	}
	return TextOnly
}
