package manager

import (
	"time"

	"ggufd/pkg/types"
)

// Snapshot is a read-only projection of the model state.
type Snapshot struct {
	Loaded             bool
	ModelPath          string
	ContextSize        uint32
	GPULayers          uint32
	BackendInitialized bool
}

// Snapshot returns a consistent copy of the model state.
func (m *Manager) Snapshot() Snapshot {
	var s Snapshot
	_ = m.withState("snapshot", func(st *modelState) error {
		s = Snapshot{
			Loaded:             st.loaded(),
			ModelPath:          st.modelPath,
			ContextSize:        st.contextSize,
			GPULayers:          st.gpuLayers,
			BackendInitialized: st.backendInitialized,
		}
		return nil
	})
	return s
}

// Status builds the response for /status. model_path is null when no model
// is resident.
func (m *Manager) Status() types.StatusResponse {
	s := m.Snapshot()
	resp := types.StatusResponse{
		Loaded:             s.Loaded,
		ContextSize:        s.ContextSize,
		GPULayers:          s.GPULayers,
		BackendInitialized: s.BackendInitialized,
		Backend:            string(m.rt.Kind()),
		UptimeSeconds:      int64(time.Since(m.startTime).Seconds()),
	}
	if s.Loaded {
		p := s.ModelPath
		resp.ModelPath = &p
	}
	return resp
}
