//go:build llama

package llamacpp

// cgo link directives for the in-process llama.cpp runtime.
//   - rpath $ORIGIN lets the loader find libllama.so and libggml*.so next to
//     the built binary (./bin).
//   - headers are expected under third_party/llama.cpp (git submodule).

/*
#cgo CFLAGS: -I${SRCDIR}/../../third_party/llama.cpp/include -I${SRCDIR}/../../third_party/llama.cpp/ggml/include
#cgo LDFLAGS: -Wl,-rpath,'$ORIGIN' -L${SRCDIR}/../../bin -lllama -lm -lstdc++
#include <stdlib.h>
#include "llama.h"
*/
import "C"

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"
	"unsafe"
)

var (
	backendMu   sync.Mutex
	backendLive bool

	sysInfoOnce sync.Once
	sysInfo     string
)

type cgoRuntime struct{}

// New returns the llama.cpp runtime.
func New() Runtime { return cgoRuntime{} }

func (cgoRuntime) InitBackend() (Backend, error) {
	backendMu.Lock()
	defer backendMu.Unlock()
	if backendLive {
		return nil, &Error{Op: "InitBackend", Code: -1, Message: "backend already initialized"}
	}
	C.llama_backend_init()
	backendLive = true
	return &cgoBackend{}, nil
}

func (cgoRuntime) Kind() BackendKind {
	sysInfoOnce.Do(func() { sysInfo = C.GoString(C.llama_print_system_info()) })
	switch {
	case strings.Contains(sysInfo, "CUDA"):
		return KindCUDA
	case strings.Contains(sysInfo, "Vulkan"):
		return KindVulkan
	case strings.Contains(sysInfo, "Metal"), strings.Contains(sysInfo, "MTL"):
		return KindMetal
	default:
		return KindCPU
	}
}

func (cgoRuntime) GPUOffload() bool { return bool(C.llama_supports_gpu_offload()) }

type cgoBackend struct {
	closed bool
}

func (b *cgoBackend) LoadModel(path string, gpuLayers int) (Model, error) {
	if b.closed {
		return nil, &Error{Op: "LoadModel", Code: -1, Message: "backend closed"}
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	params := C.llama_model_default_params()
	params.n_gpu_layers = C.int32_t(gpuLayers)

	ptr := C.llama_model_load_from_file(cPath, params)
	if ptr == nil {
		return nil, &Error{Op: "LoadModel", Code: -1, Message: fmt.Sprintf("failed to load model from %s (malformed file, unsupported architecture, or insufficient memory)", path)}
	}
	vocab := C.llama_model_get_vocab(ptr)
	m := &cgoModel{
		ptr:        ptr,
		vocab:      vocab,
		nVocab:     int(C.llama_vocab_n_tokens(vocab)),
		capability: DetectCapability(path),
	}
	runtime.SetFinalizer(m, func(m *cgoModel) { _ = m.Close() })
	return m, nil
}

func (b *cgoBackend) Close() error {
	backendMu.Lock()
	defer backendMu.Unlock()
	if b.closed {
		return nil
	}
	C.llama_backend_free()
	b.closed = true
	backendLive = false
	return nil
}

type cgoModel struct {
	mu         sync.Mutex
	ptr        *C.struct_llama_model
	vocab      *C.struct_llama_vocab
	nVocab     int
	capability Capability
}

func (m *cgoModel) Tokenize(text string, addBOS bool) ([]Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ptr == nil {
		return nil, &Error{Op: "Tokenize", Code: -1, Message: "model closed"}
	}
	cText := C.CString(text)
	defer C.free(unsafe.Pointer(cText))

	buf := make([]C.llama_token, len(text)+2)
	n := C.llama_tokenize(m.vocab, cText, C.int32_t(len(text)), &buf[0], C.int32_t(len(buf)), C.bool(addBOS), C.bool(true))
	if n < 0 {
		// buffer too small; -n is the required size
		buf = make([]C.llama_token, int(-n))
		n = C.llama_tokenize(m.vocab, cText, C.int32_t(len(text)), &buf[0], C.int32_t(len(buf)), C.bool(addBOS), C.bool(true))
	}
	if n < 0 {
		return nil, &Error{Op: "Tokenize", Code: int(n), Message: "tokenization failed"}
	}
	out := make([]Token, int(n))
	for i := range out {
		out[i] = Token(buf[i])
	}
	return out, nil
}

func (m *cgoModel) TokenToPiece(t Token) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ptr == nil {
		return "", &Error{Op: "TokenToPiece", Code: -1, Message: "model closed"}
	}
	buf := make([]byte, 64)
	n := C.llama_token_to_piece(m.vocab, C.llama_token(t), (*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)), 0, C.bool(true))
	if n < 0 {
		buf = make([]byte, int(-n))
		n = C.llama_token_to_piece(m.vocab, C.llama_token(t), (*C.char)(unsafe.Pointer(&buf[0])), C.int32_t(len(buf)), 0, C.bool(true))
	}
	if n < 0 {
		return "", &Error{Op: "TokenToPiece", Code: int(n), Message: fmt.Sprintf("token %d", t)}
	}
	piece := buf[:n]
	if !utf8.Valid(piece) {
		return "", &Error{Op: "TokenToPiece", Code: int(t), Message: fmt.Sprintf("token %d", t), Err: ErrInvalidPiece}
	}
	return string(piece), nil
}

func (m *cgoModel) IsEOG(t Token) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ptr == nil {
		return true
	}
	return bool(C.llama_vocab_is_eog(m.vocab, C.llama_token(t)))
}

func (m *cgoModel) Capability() Capability { return m.capability }

func (m *cgoModel) NewContext(p ContextParams) (Context, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ptr == nil {
		return nil, &Error{Op: "NewContext", Code: -1, Message: "model closed"}
	}
	params := C.llama_context_default_params()
	params.n_ctx = C.uint32_t(p.ContextSize)
	params.n_batch = C.uint32_t(p.BatchSize)
	if params.n_ubatch > params.n_batch {
		params.n_ubatch = params.n_batch
	}
	if p.Threads > 0 {
		params.n_threads = C.int32_t(p.Threads)
		params.n_threads_batch = C.int32_t(p.Threads)
	}
	ptr := C.llama_init_from_model(m.ptr, params)
	if ptr == nil {
		return nil, &Error{Op: "NewContext", Code: -1, Message: fmt.Sprintf("failed to create context n_ctx=%d n_batch=%d (possibly insufficient memory)", p.ContextSize, p.BatchSize)}
	}
	c := &cgoContext{
		ptr:    ptr,
		batch:  C.llama_batch_init(C.int32_t(p.BatchSize), 0, 1),
		cap:    int(p.BatchSize),
		nVocab: m.nVocab,
	}
	runtime.SetFinalizer(c, func(c *cgoContext) { _ = c.Close() })
	return c, nil
}

func (m *cgoModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ptr != nil {
		C.llama_model_free(m.ptr)
		m.ptr = nil
		m.vocab = nil
		runtime.SetFinalizer(m, nil)
	}
	return nil
}

type cgoContext struct {
	ptr    *C.struct_llama_context
	batch  C.struct_llama_batch
	cap    int
	nVocab int
}

func (c *cgoContext) Decode(b *Batch) error {
	if c.ptr == nil {
		return &Error{Op: "Decode", Code: -1, Message: "context closed"}
	}
	n := b.Len()
	if n == 0 {
		return &Error{Op: "Decode", Code: -1, Message: "empty batch"}
	}
	if n > c.cap {
		return &Error{Op: "Decode", Code: -1, Message: fmt.Sprintf("batch of %d tokens exceeds n_batch %d", n, c.cap)}
	}
	tokens := unsafe.Slice(c.batch.token, c.cap)
	pos := unsafe.Slice(c.batch.pos, c.cap)
	nSeq := unsafe.Slice(c.batch.n_seq_id, c.cap)
	seqIDs := unsafe.Slice(c.batch.seq_id, c.cap)
	logits := unsafe.Slice(c.batch.logits, c.cap)
	for i := 0; i < n; i++ {
		tokens[i] = C.llama_token(b.Tokens[i])
		pos[i] = C.llama_pos(b.Pos[i])
		nSeq[i] = 1
		unsafe.Slice(seqIDs[i], 1)[0] = 0
		if b.Logits[i] {
			logits[i] = 1
		} else {
			logits[i] = 0
		}
	}
	c.batch.n_tokens = C.int32_t(n)
	if ret := C.llama_decode(c.ptr, c.batch); ret != 0 {
		e := &Error{Op: "Decode", Code: int(ret), Message: fmt.Sprintf("decode of %d tokens failed", n)}
		if ret == 1 {
			e.Err = ErrNoKVSlot
		}
		return e
	}
	return nil
}

func (c *cgoContext) Logits(i int) []float32 {
	if c.ptr == nil {
		return nil
	}
	p := C.llama_get_logits_ith(c.ptr, C.int32_t(i))
	if p == nil {
		return nil
	}
	src := unsafe.Slice((*float32)(unsafe.Pointer(p)), c.nVocab)
	out := make([]float32, len(src))
	copy(out, src)
	return out
}

func (c *cgoContext) Close() error {
	if c.ptr != nil {
		C.llama_batch_free(c.batch)
		C.llama_free(c.ptr)
		c.ptr = nil
		runtime.SetFinalizer(c, nil)
	}
	return nil
}
