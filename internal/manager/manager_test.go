package manager

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ggufd/internal/llamacpp"
	"ggufd/pkg/types"
)

func TestLoadThenStatus(t *testing.T) {
	rt := llamacpp.NewFake("hi")
	m, pub := newTestManager(t, rt)
	p := createModelFile(t, t.TempDir(), "m.gguf", 1)

	msg, err := m.Load(testCtx(t), p, 4096, 0)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if msg != "model loaded: "+p {
		t.Fatalf("unexpected message %q", msg)
	}
	st := m.Status()
	if !st.Loaded || st.ModelPath == nil || *st.ModelPath != p {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.ContextSize != 4096 || !st.BackendInitialized {
		t.Fatalf("unexpected status: %+v", st)
	}
	if !m.Ready() {
		t.Fatalf("expected ready after load")
	}
	if diff := cmp.Diff([]string{EventLoadStart, EventLoadDone}, pub.Names()); diff != "" {
		t.Fatalf("events (-want +got):\n%s", diff)
	}
}

func TestLoad_DefaultContextSize(t *testing.T) {
	m, _ := loadedManager(t, llamacpp.NewFake("x"), 0)
	if got := m.Status().ContextSize; got != defaultContextSize {
		t.Fatalf("context size = %d, want %d", got, defaultContextSize)
	}
}

func TestLoad_NotFound(t *testing.T) {
	rt := llamacpp.NewFake("x")
	m, _ := newTestManager(t, rt)
	_, err := m.Load(testCtx(t), filepath.Join(t.TempDir(), "missing.gguf"), 0, 0)
	if !IsNotFound(err) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if rt.Stats().BackendInits != 0 {
		t.Fatalf("backend must not be initialized for a missing file")
	}
	if _, err := m.Load(testCtx(t), "", 0, 0); !IsNotFound(err) {
		t.Fatalf("empty path: expected NotFound, got %v", err)
	}
}

func TestLoad_BackendInitError(t *testing.T) {
	rt := llamacpp.NewFake("x")
	rt.InitErr = errors.New("no device")
	m, pub := newTestManager(t, rt)
	p := createModelFile(t, t.TempDir(), "m.gguf", 1)
	_, err := m.Load(testCtx(t), p, 0, 0)
	if !IsBackendInit(err) {
		t.Fatalf("expected BackendInit, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) || e.StatusCode() != 503 {
		t.Fatalf("expected 503 error, got %v", err)
	}
	if s := m.Snapshot(); s.Loaded || s.BackendInitialized {
		t.Fatalf("state mutated: %+v", s)
	}
	names := pub.Names()
	if names[len(names)-1] != EventLoadError {
		t.Fatalf("expected load_error event, got %v", names)
	}
}

func TestLoad_ModelLoadErrorKeepsPrevious(t *testing.T) {
	rt := llamacpp.NewFake("x")
	m, first := loadedManager(t, rt, 2048)

	rt.LoadErr = errors.New("bad magic")
	second := createModelFile(t, t.TempDir(), "broken.gguf", 1)
	_, err := m.Load(testCtx(t), second, 4096, 0)
	if !IsModelLoad(err) {
		t.Fatalf("expected ModelLoad, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad magic") {
		t.Fatalf("runtime diagnostic lost: %v", err)
	}
	st := m.Status()
	if !st.Loaded || *st.ModelPath != first || st.ContextSize != 2048 {
		t.Fatalf("previous model not kept: %+v", st)
	}
}

func TestLoad_ReusesBackendAndReleasesPrevious(t *testing.T) {
	rt := llamacpp.NewFake("x")
	m, _ := loadedManager(t, rt, 0)
	p2 := createModelFile(t, t.TempDir(), "second.gguf", 1)
	if _, err := m.Load(testCtx(t), p2, 0, 0); err != nil {
		t.Fatalf("second Load: %v", err)
	}
	s := rt.Stats()
	if s.BackendInits != 1 {
		t.Fatalf("backend initialized %d times", s.BackendInits)
	}
	if s.ModelLoads != 2 {
		t.Fatalf("model loads = %d", s.ModelLoads)
	}
	if diff := cmp.Diff([]string{"model"}, s.Released); diff != "" {
		t.Fatalf("released (-want +got):\n%s", diff)
	}
	if got := *m.Status().ModelPath; got != p2 {
		t.Fatalf("model path = %s", got)
	}
}

func TestLoad_GPUDowngradeWithoutOffload(t *testing.T) {
	rt := llamacpp.NewFake("x")
	m, _ := newTestManager(t, rt)
	p := createModelFile(t, t.TempDir(), "m.gguf", 1)
	if _, err := m.Load(testCtx(t), p, 0, 35); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rt.Stats().LastGPULayers != 0 || m.Status().GPULayers != 0 {
		t.Fatalf("gpu layers not downgraded: runtime=%d status=%d", rt.Stats().LastGPULayers, m.Status().GPULayers)
	}

	gpu := llamacpp.NewFake("x")
	gpu.GPU = true
	gpu.Accel = llamacpp.KindCUDA
	m2, _ := newTestManager(t, gpu)
	if _, err := m2.Load(testCtx(t), p, 0, 35); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if gpu.Stats().LastGPULayers != 35 || m2.Status().GPULayers != 35 {
		t.Fatalf("gpu layers not passed through")
	}
}

func TestUnload_ModelOnlyKeepsBackend(t *testing.T) {
	rt := llamacpp.NewFake("x")
	m, _ := loadedManager(t, rt, 1024)
	msg, err := m.Unload(testCtx(t), UnloadModel)
	if err != nil || msg != "model unloaded" {
		t.Fatalf("Unload = %q, %v", msg, err)
	}
	st := m.Status()
	if st.Loaded || st.ModelPath != nil {
		t.Fatalf("expected unloaded status, got %+v", st)
	}
	if st.ContextSize != defaultContextSize || st.GPULayers != 0 {
		t.Fatalf("defaults not restored: %+v", st)
	}
	if !st.BackendInitialized {
		t.Fatalf("backend should stay warm")
	}
	if diff := cmp.Diff([]string{"model"}, rt.Stats().Released); diff != "" {
		t.Fatalf("released (-want +got):\n%s", diff)
	}
	if m.Ready() {
		t.Fatalf("not ready after unload")
	}
}

func TestUnload_TwiceIsSafe(t *testing.T) {
	m, _ := loadedManager(t, llamacpp.NewFake("x"), 0)
	if _, err := m.Unload(testCtx(t), UnloadModel); err != nil {
		t.Fatalf("first Unload: %v", err)
	}
	msg, err := m.Unload(testCtx(t), UnloadModel)
	if err != nil {
		t.Fatalf("second Unload: %v", err)
	}
	if msg != "no model loaded" {
		t.Fatalf("unexpected message %q", msg)
	}
	if st := m.Status(); st.Loaded || st.ModelPath != nil {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestShutdown_ReleasesModelBeforeBackend(t *testing.T) {
	rt := llamacpp.NewFake("x")
	m, _ := loadedManager(t, rt, 0)
	if err := m.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if diff := cmp.Diff([]string{"model", "backend"}, rt.Stats().Released); diff != "" {
		t.Fatalf("release order (-want +got):\n%s", diff)
	}
	if m.Status().BackendInitialized {
		t.Fatalf("backend flag not reset")
	}
	// A later load initializes a fresh backend.
	p := createModelFile(t, t.TempDir(), "again.gguf", 1)
	if _, err := m.Load(testCtx(t), p, 0, 0); err != nil {
		t.Fatalf("Load after shutdown: %v", err)
	}
	if rt.Stats().BackendInits != 2 {
		t.Fatalf("backend inits = %d", rt.Stats().BackendInits)
	}
}

func TestListModels_ReturnsCopy(t *testing.T) {
	m, _ := newTestManager(t, llamacpp.NewFake("x"), func(c *ManagerConfig) {
		c.Registry = []types.Model{{ID: "a.gguf"}}
	})
	got := m.ListModels()
	got[0].ID = "mutated"
	if m.ListModels()[0].ID != "a.gguf" {
		t.Fatalf("registry mutated through ListModels")
	}
}
