package manager

import (
	"context"
	"time"

	"ggufd/internal/common/fsutil"
)

// Load makes the model at path resident. The backend is initialized on the
// first load and reused afterwards. A resident model is replaced: it is
// closed only after the new one loaded successfully, so a failed load
// leaves the previous model in place.
//
// contextSize 0 selects the configured default. gpuLayers is forced to 0
// when the runtime cannot offload.
func (m *Manager) Load(ctx context.Context, path string, contextSize, gpuLayers uint32) (string, error) {
	const op = "load"
	if path == "" || !fsutil.PathExists(path) {
		loadsTotal.WithLabelValues("not_found").Inc()
		return "", newError(KindNotFound, op, "model file not found: "+path, nil)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if contextSize == 0 {
		contextSize = m.cfg.DefaultContextSize
	}

	m.publisher.Publish(Event{Name: EventLoadStart, Model: path, Fields: map[string]any{
		"context_size": contextSize,
		"gpu_layers":   gpuLayers,
	}})
	start := time.Now()
	var effectiveLayers uint32

	err := m.withState(op, func(st *modelState) error {
		if !st.backendInitialized {
			b, err := m.rt.InitBackend()
			if err != nil {
				return newError(KindBackendInit, op, "failed to initialize backend", err)
			}
			st.backend = b
			st.backendInitialized = true
			m.log.Info().Str("backend", string(m.rt.Kind())).Msg("backend initialized")
		}

		effectiveLayers = gpuLayers
		if effectiveLayers > 0 && !m.rt.GPUOffload() {
			m.log.Warn().
				Uint32("requested_gpu_layers", gpuLayers).
				Str("backend", string(m.rt.Kind())).
				Msg("gpu offload not supported by this build, loading on cpu")
			effectiveLayers = 0
		}

		mdl, err := st.backend.LoadModel(path, int(effectiveLayers))
		if err != nil {
			return newError(KindModelLoad, op, "failed to load model from "+path, err)
		}
		if st.model != nil {
			m.log.Info().Str("model", st.modelPath).Msg("replacing resident model")
			if cerr := st.model.Close(); cerr != nil {
				m.log.Warn().Err(cerr).Str("model", st.modelPath).Msg("close previous model")
			}
		}
		st.model = mdl
		st.modelPath = path
		st.contextSize = contextSize
		st.gpuLayers = effectiveLayers
		modelResident.Set(1)
		return nil
	})
	if err != nil {
		loadsTotal.WithLabelValues(KindOf(err).String()).Inc()
		m.log.Error().Err(err).Str("model", path).Msg("load failed")
		m.publisher.Publish(Event{Name: EventLoadError, Model: path, Fields: map[string]any{"error": err.Error()}})
		return "", err
	}

	loadsTotal.WithLabelValues("ok").Inc()
	m.log.Info().
		Str("model", path).
		Uint32("context_size", contextSize).
		Uint32("gpu_layers", effectiveLayers).
		Dur("took", time.Since(start)).
		Msg("model loaded")
	m.publisher.Publish(Event{Name: EventLoadDone, Model: path, Fields: map[string]any{
		"context_size": contextSize,
		"gpu_layers":   effectiveLayers,
		"ms":           time.Since(start).Milliseconds(),
	}})
	return "model loaded: " + path, nil
}
