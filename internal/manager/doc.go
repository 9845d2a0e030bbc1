// Package manager owns the resident model and runs generations against it.
// It is structured into small files by concern:
//
//   - manager.go: Manager type, withState (lock + panic recovery), getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - state.go: the guarded model slot and its revalidation after a panic.
//   - errors.go: the Error type, kinds and IsXxx helpers.
//   - load.go / unload.go: lifecycle of backend and model.
//   - generate.go, prefill.go, sampler.go, sanitize.go: the generation loop.
//   - vision.go: image validation and the text-only fallback.
//   - stream.go: replay of a finished response as stream events.
//   - memory.go: advisory VRAM estimate.
//   - backend.go: backend capabilities and file metadata.
//   - events.go, metrics.go: lifecycle events and Prometheus collectors.
//
// Native calls go through llamacpp.Runtime. Build with `-tags=llama` for the
// CGo runtime; without the tag llamacpp.New returns a stub whose backend
// never initializes, and tests use llamacpp.FakeRuntime.
//
// There is one model slot and one lock. A generation holds the lock from
// tokenization to detokenization, so at most one is in flight.
package manager
