package manager

import "ggufd/internal/llamacpp"

// modelState is the single resident-model slot. It is only touched with
// Manager.mu held.
type modelState struct {
	backend llamacpp.Backend
	model   llamacpp.Model
	// modelPath is "" iff model is nil.
	modelPath          string
	contextSize        uint32
	gpuLayers          uint32
	backendInitialized bool
	// poisoned is set when an operation panicked while holding the lock.
	poisoned bool
}

func (st *modelState) loaded() bool { return st.model != nil }

// reset clears the model slot, leaving the backend alone.
func (st *modelState) reset(defaultCtx uint32) {
	st.model = nil
	st.modelPath = ""
	st.contextSize = defaultCtx
	st.gpuLayers = 0
}

// revalidate restores the model/path invariant after a panic. It returns a
// list of repairs made, for logging.
func (st *modelState) revalidate(defaultCtx uint32) []string {
	var fixes []string
	switch {
	case st.model == nil && st.modelPath != "":
		fixes = append(fixes, "cleared path of missing model")
		st.modelPath = ""
	case st.model != nil && st.modelPath == "":
		fixes = append(fixes, "dropped model without path")
		_ = st.model.Close()
		st.model = nil
	}
	if st.model == nil && (st.contextSize != defaultCtx || st.gpuLayers != 0) {
		fixes = append(fixes, "reset context defaults")
		st.reset(defaultCtx)
	}
	if st.backendInitialized != (st.backend != nil) {
		fixes = append(fixes, "synced backend flag")
		st.backendInitialized = st.backend != nil
	}
	st.poisoned = false
	return fixes
}
