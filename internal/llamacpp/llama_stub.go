//go:build !llama

package llamacpp

// This file is compiled when the 'llama' build tag is NOT set. The stub
// satisfies Runtime but refuses to initialize a backend, so production
// binaries built without CGO never pretend to run a model.

type stubRuntime struct{}

// New returns the stub runtime; build with -tags=llama for llama.cpp.
func New() Runtime { return stubRuntime{} }

func (stubRuntime) InitBackend() (Backend, error) {
	return nil, &Error{Op: "InitBackend", Code: -1, Message: "llama.cpp runtime unavailable", Err: ErrUnavailable}
}

func (stubRuntime) Kind() BackendKind { return KindCPU }

func (stubRuntime) GPUOffload() bool { return false }
