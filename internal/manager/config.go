package manager

import (
	"time"

	"github.com/rs/zerolog"

	"ggufd/internal/llamacpp"
	"ggufd/pkg/types"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultContextSize = 4096
	defaultBatchWidth  = 8192
	// minKVCache is the floor for the KV cache budget of a generation.
	minKVCache = 4096
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	// Runtime executes models. Nil selects llamacpp.New(), which is the
	// CGo runtime when built with -tags=llama and a stub otherwise.
	Runtime   llamacpp.Runtime
	Logger    *zerolog.Logger
	Publisher EventPublisher
	Registry  []types.Model

	// DefaultContextSize applies when Load is called with context size 0.
	DefaultContextSize uint32
	// BatchWidth is the maximum number of tokens per decode call.
	BatchWidth uint32
	// Threads for the inference context; 0 lets the runtime decide.
	Threads int

	Memory MemoryProfile
}

// NewWithConfig constructs a Manager from ManagerConfig.
func NewWithConfig(cfg ManagerConfig) *Manager {
	if cfg.Runtime == nil {
		cfg.Runtime = llamacpp.New()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.DefaultContextSize == 0 {
		cfg.DefaultContextSize = defaultContextSize
	}
	if cfg.BatchWidth == 0 {
		cfg.BatchWidth = defaultBatchWidth
	}
	cfg.Memory = cfg.Memory.withDefaults()

	m := &Manager{
		rt:        cfg.Runtime,
		sampler:   greedy{},
		publisher: cfg.Publisher,
		registry:  append([]types.Model(nil), cfg.Registry...),
		cfg:       cfg,
		startTime: time.Now(),
	}
	if cfg.Logger != nil {
		m.log = *cfg.Logger
	} else {
		m.log = zerolog.Nop()
	}
	m.st.reset(cfg.DefaultContextSize)
	return m
}

// New returns a Manager running on rt with package defaults.
func New(rt llamacpp.Runtime) *Manager {
	return NewWithConfig(ManagerConfig{Runtime: rt})
}
