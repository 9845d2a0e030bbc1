package manager

import (
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ggufd/internal/llamacpp"
	"ggufd/pkg/types"
)

// Manager owns the execution backend and the single resident model.
// Every operation that reads or mutates that state holds mu for its whole
// duration; a generation therefore serializes with loads, unloads and other
// generations.
type Manager struct {
	mu sync.Mutex
	st modelState

	rt        llamacpp.Runtime
	sampler   Sampler
	cfg       ManagerConfig
	log       zerolog.Logger
	publisher EventPublisher
	registry  []types.Model
	startTime time.Time
}

// withState runs fn with the state lock held. A panic inside fn marks the
// state poisoned and is returned to this caller as an internal error; the
// next caller revalidates the state before using it.
func (m *Manager) withState(op string, fn func(st *modelState) error) (err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.poisoned {
		m.recoverPoisoned(op)
	}
	defer func() {
		if r := recover(); r != nil {
			m.st.poisoned = true
			m.log.Error().
				Str("op", op).
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("panic while holding model state")
			err = newError(KindInternal, op, fmt.Sprintf("panic: %v", r), nil)
		}
	}()
	return fn(&m.st)
}

func (m *Manager) recoverPoisoned(op string) {
	fixes := m.st.revalidate(m.cfg.DefaultContextSize)
	lockRecoveries.Inc()
	m.log.Warn().
		Str("op", op).
		Str("kind", KindLockPoisoned.String()).
		Str("repairs", strings.Join(fixes, "; ")).
		Bool("model_resident", m.st.loaded()).
		Msg("recovered poisoned model state")
	m.publisher.Publish(Event{Name: EventLockRecovered, Model: m.st.modelPath, Fields: map[string]any{"op": op, "repairs": fixes}})
}

// Ready reports whether a model is resident and generation can be served.
// A poisoned state is revalidated first, as any other acquirer would.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.st.poisoned {
		m.recoverPoisoned("ready")
	}
	return m.st.loaded()
}

// ListModels returns the models discovered at startup.
func (m *Manager) ListModels() []types.Model {
	// return a shallow copy to avoid external mutation
	out := make([]types.Model, len(m.registry))
	copy(out, m.registry)
	return out
}
