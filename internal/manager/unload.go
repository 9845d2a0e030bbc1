package manager

import "context"

// UnloadMode selects how much of the runtime Unload releases.
type UnloadMode int

const (
	// UnloadModel drops the model and keeps the backend initialized.
	UnloadModel UnloadMode = iota
	// UnloadFull drops the model and then the backend.
	UnloadFull
)

func (m UnloadMode) String() string {
	if m == UnloadFull {
		return "full"
	}
	return "model"
}

// Unload releases the resident model. It is safe to call when nothing is
// loaded. The model is always closed before the backend.
func (m *Manager) Unload(ctx context.Context, mode UnloadMode) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var path string
	err := m.withState("unload", func(st *modelState) error {
		path = st.modelPath
		if st.model != nil {
			if err := st.model.Close(); err != nil {
				m.log.Warn().Err(err).Str("model", path).Msg("close model")
			}
		}
		st.reset(m.cfg.DefaultContextSize)
		modelResident.Set(0)
		if mode == UnloadFull && st.backend != nil {
			if err := st.backend.Close(); err != nil {
				m.log.Warn().Err(err).Msg("close backend")
			}
			st.backend = nil
			st.backendInitialized = false
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if path == "" {
		m.log.Debug().Str("mode", mode.String()).Msg("unload with no resident model")
		return "no model loaded", nil
	}
	m.log.Info().Str("model", path).Str("mode", mode.String()).Msg("model unloaded")
	m.publisher.Publish(Event{Name: EventUnload, Model: path, Fields: map[string]any{"mode": mode.String()}})
	return "model unloaded", nil
}

// Shutdown tears down model and backend. Used at process exit.
func (m *Manager) Shutdown() error {
	_, err := m.Unload(context.Background(), UnloadFull)
	return err
}
