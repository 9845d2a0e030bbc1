package llamacpp

import (
	"fmt"
	"hash/fnv"
	"sync"
	"time"
)

// Fake vocabulary: ids 0-255 are raw bytes, followed by BOS and EOS.
const (
	FakeBOS   Token = 256
	FakeEOS   Token = 257
	fakeVocab       = 258
)

// FakeRuntime is a deterministic in-memory runtime. Tokenization is
// byte-level; the context keeps a real position-checked token sequence so
// callers that get the cursor wrong fail loudly.
//
// With Reply set, the model answers with Reply byte by byte and then EOS.
// Without it, each next token is derived from a hash of the full sequence,
// which makes the output depend on every prompt token and its position.
//
// Configure fields before first use; they are not guarded.
type FakeRuntime struct {
	Reply  string
	Accel  BackendKind
	GPU    bool
	Vision bool

	InitErr     error
	LoadErr     error
	ContextErr  error
	TokenizeErr error
	// DecodeErrAt fails the n-th Decode call (1-based, counted across contexts).
	DecodeErrAt int
	// PanicAtDecode panics inside the n-th Decode call.
	PanicAtDecode int
	BadPieces     map[Token]bool
	NoLogits      bool
	// DecodeDelay holds every Decode call open for this long.
	DecodeDelay time.Duration

	mu       sync.Mutex
	stats    FakeStats
	inFlight int
}

// FakeStats records what the engine asked of the runtime.
type FakeStats struct {
	BackendInits  int
	ModelLoads    int
	Contexts      int
	Decodes       int
	MaxBatch      int
	// PeakInFlight is the most Decode calls observed running at once.
	PeakInFlight  int
	LastContext   ContextParams
	LastGPULayers int
	LastModelPath string
	// Released lists closed resources in order ("model", "backend", "context").
	Released []string
}

// NewFake returns a FakeRuntime that answers with reply.
func NewFake(reply string) *FakeRuntime { return &FakeRuntime{Reply: reply} }

// Stats returns a copy of the recorded counters.
func (f *FakeRuntime) Stats() FakeStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.stats
	s.Released = append([]string(nil), f.stats.Released...)
	return s
}

func (f *FakeRuntime) release(what string) {
	f.mu.Lock()
	f.stats.Released = append(f.stats.Released, what)
	f.mu.Unlock()
}

func (f *FakeRuntime) InitBackend() (Backend, error) {
	if f.InitErr != nil {
		return nil, &Error{Op: "InitBackend", Code: -1, Message: "backend init failed", Err: f.InitErr}
	}
	f.mu.Lock()
	f.stats.BackendInits++
	f.mu.Unlock()
	return &fakeBackend{rt: f}, nil
}

func (f *FakeRuntime) Kind() BackendKind {
	if f.Accel == "" {
		return KindCPU
	}
	return f.Accel
}

func (f *FakeRuntime) GPUOffload() bool { return f.GPU }

type fakeBackend struct {
	rt     *FakeRuntime
	closed bool
}

func (b *fakeBackend) LoadModel(path string, gpuLayers int) (Model, error) {
	if b.closed {
		return nil, &Error{Op: "LoadModel", Code: -1, Message: "backend closed"}
	}
	if b.rt.LoadErr != nil {
		return nil, &Error{Op: "LoadModel", Code: -1, Message: fmt.Sprintf("failed to load model from %s", path), Err: b.rt.LoadErr}
	}
	b.rt.mu.Lock()
	b.rt.stats.ModelLoads++
	b.rt.stats.LastGPULayers = gpuLayers
	b.rt.stats.LastModelPath = path
	b.rt.mu.Unlock()
	capability := TextOnly
	if b.rt.Vision {
		capability = VisionCapable
	}
	return &fakeModel{rt: b.rt, capability: capability}, nil
}

func (b *fakeBackend) Close() error {
	if !b.closed {
		b.closed = true
		b.rt.release("backend")
	}
	return nil
}

type fakeModel struct {
	rt         *FakeRuntime
	capability Capability
	closed     bool
}

func (m *fakeModel) Tokenize(text string, addBOS bool) ([]Token, error) {
	if m.rt.TokenizeErr != nil {
		return nil, &Error{Op: "Tokenize", Code: -1, Message: "tokenization failed", Err: m.rt.TokenizeErr}
	}
	out := make([]Token, 0, len(text)+1)
	if addBOS {
		out = append(out, FakeBOS)
	}
	for i := 0; i < len(text); i++ {
		out = append(out, Token(text[i]))
	}
	return out, nil
}

func (m *fakeModel) TokenToPiece(t Token) (string, error) {
	if m.rt.BadPieces[t] {
		return "", &Error{Op: "TokenToPiece", Code: int(t), Message: fmt.Sprintf("token %d", t), Err: ErrInvalidPiece}
	}
	switch {
	case t >= 0 && t < 256:
		return string([]byte{byte(t)}), nil
	case t == FakeBOS:
		return "<s>", nil
	case t == FakeEOS:
		return "<|endoftext|>", nil
	}
	return "", &Error{Op: "TokenToPiece", Code: int(t), Message: fmt.Sprintf("token %d out of vocabulary", t)}
}

func (m *fakeModel) IsEOG(t Token) bool { return t == FakeEOS }

func (m *fakeModel) Capability() Capability { return m.capability }

func (m *fakeModel) NewContext(p ContextParams) (Context, error) {
	if m.closed {
		return nil, &Error{Op: "NewContext", Code: -1, Message: "model closed"}
	}
	if m.rt.ContextErr != nil {
		return nil, &Error{Op: "NewContext", Code: -1, Message: "failed to create context", Err: m.rt.ContextErr}
	}
	m.rt.mu.Lock()
	m.rt.stats.Contexts++
	m.rt.stats.LastContext = p
	m.rt.mu.Unlock()
	return &fakeContext{rt: m.rt, params: p, firstOutput: -1}, nil
}

func (m *fakeModel) Close() error {
	if !m.closed {
		m.closed = true
		m.rt.release("model")
	}
	return nil
}

type fakeContext struct {
	rt     *FakeRuntime
	params ContextParams
	seq    []Token
	// outputs of the last Decode, indexed like its batch
	lastOut     []bool
	firstOutput int
	closed      bool
}

func (c *fakeContext) Decode(b *Batch) error {
	c.rt.mu.Lock()
	c.rt.stats.Decodes++
	n := c.rt.stats.Decodes
	if b.Len() > c.rt.stats.MaxBatch {
		c.rt.stats.MaxBatch = b.Len()
	}
	c.rt.inFlight++
	if c.rt.inFlight > c.rt.stats.PeakInFlight {
		c.rt.stats.PeakInFlight = c.rt.inFlight
	}
	c.rt.mu.Unlock()
	defer func() {
		c.rt.mu.Lock()
		c.rt.inFlight--
		c.rt.mu.Unlock()
	}()
	if c.rt.DecodeDelay > 0 {
		time.Sleep(c.rt.DecodeDelay)
	}

	if c.rt.PanicAtDecode == n {
		panic(fmt.Sprintf("fake runtime: panic at decode %d", n))
	}
	if c.rt.DecodeErrAt == n {
		return &Error{Op: "Decode", Code: -3, Message: fmt.Sprintf("injected failure at decode %d", n)}
	}
	if c.closed {
		return &Error{Op: "Decode", Code: -1, Message: "context closed"}
	}
	if b.Len() == 0 {
		return &Error{Op: "Decode", Code: -1, Message: "empty batch"}
	}
	if b.Len() > int(c.params.BatchSize) {
		return &Error{Op: "Decode", Code: -1, Message: fmt.Sprintf("batch of %d tokens exceeds n_batch %d", b.Len(), c.params.BatchSize)}
	}
	if len(c.seq)+b.Len() > int(c.params.ContextSize) {
		return &Error{Op: "Decode", Code: 1, Message: "kv cache full", Err: ErrNoKVSlot}
	}
	for i, t := range b.Tokens {
		if int(b.Pos[i]) != len(c.seq) {
			return &Error{Op: "Decode", Code: -1, Message: fmt.Sprintf("position %d out of order, expected %d", b.Pos[i], len(c.seq))}
		}
		c.seq = append(c.seq, t)
	}
	c.lastOut = append(c.lastOut[:0], b.Logits...)
	if c.firstOutput < 0 {
		for _, want := range b.Logits {
			if want {
				c.firstOutput = len(c.seq)
				break
			}
		}
	}
	return nil
}

func (c *fakeContext) Logits(i int) []float32 {
	if c.rt.NoLogits || i < 0 || i >= len(c.lastOut) || !c.lastOut[i] {
		return nil
	}
	end := len(c.seq) - len(c.lastOut) + i + 1
	history := c.seq[:end]

	var next Token
	if c.rt.Reply != "" {
		k := len(history) - c.firstOutput
		if k >= 0 && k < len(c.rt.Reply) {
			next = Token(c.rt.Reply[k])
		} else {
			next = FakeEOS
		}
	} else {
		h := fnv.New32a()
		for pos, t := range history {
			_, _ = h.Write([]byte{byte(t), byte(t >> 8), byte(pos), byte(pos >> 8)})
		}
		next = Token('a' + h.Sum32()%26)
	}
	logits := make([]float32, fakeVocab)
	logits[next] = 1
	return logits
}

func (c *fakeContext) Close() error {
	if !c.closed {
		c.closed = true
		c.rt.release("context")
	}
	return nil
}
